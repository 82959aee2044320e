package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"evledger/backend/services/ledger-service/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	LedgerHandlers *handlers.LedgerHandlers
	HealthHandler  http.HandlerFunc
	EventsHandler  http.HandlerFunc
}

// NewRouter wires HTTP routes. Mutating routes and /ledger/me require authMiddleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	h := deps.LedgerHandlers

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return Chain(handler, authMiddleware)
	}

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))

	mux.Handle("/ledger/vehicles", method(http.MethodPost, authenticated(h.RegisterVehicle)))
	mux.Handle("/ledger/vehicles/{id}", method(http.MethodGet, http.HandlerFunc(h.Vehicle)))
	mux.Handle("/ledger/vehicles/{id}/credits", methods(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(h.Credits),
		http.MethodPost: authenticated(h.AddCredits),
	}))
	mux.Handle("/ledger/vehicles/{id}/sessions", method(http.MethodPost, authenticated(h.RecordSession)))
	mux.Handle("/ledger/vehicles/{id}/owner-sessions", method(http.MethodPost, authenticated(h.RecordOwnerSession)))
	mux.Handle("/ledger/owners/{identity}/vehicles", method(http.MethodGet, http.HandlerFunc(h.OwnerVehicles)))
	mux.Handle("/ledger/me/vehicles", method(http.MethodGet, authenticated(h.MyVehicles)))
	mux.Handle("/ledger/sessions/{id}", method(http.MethodGet, http.HandlerFunc(h.Session)))
	mux.Handle("/ledger/transfers", method(http.MethodPost, authenticated(h.Transfer)))
	mux.Handle("/ledger/stats", method(http.MethodGet, http.HandlerFunc(h.Stats)))

	if deps.EventsHandler != nil {
		mux.Handle("/ledger/events/ws", method(http.MethodGet, deps.EventsHandler))
	}
	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return methods(map[string]http.Handler{expected: handler})
}

func methods(byMethod map[string]http.Handler) http.Handler {
	allowed := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
