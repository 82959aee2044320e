package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"evledger/backend/services/ledger-service/internal/identity"
	"evledger/backend/services/ledger-service/internal/ledger"
	"evledger/backend/services/ledger-service/internal/service"
)

// LedgerHandlers serves the /ledger API.
type LedgerHandlers struct {
	svc    *service.LedgerService
	logger *zap.Logger
}

// NewLedgerHandlers builds handlers.
func NewLedgerHandlers(svc *service.LedgerService, logger *zap.Logger) *LedgerHandlers {
	return &LedgerHandlers{svc: svc, logger: logger}
}

type registerVehicleRequest struct {
	VehicleID       string `json:"vehicle_id"`
	VIN             string `json:"vin"`
	Model           string `json:"model"`
	BatteryCapacity string `json:"battery_capacity"`
}

type sessionRequest struct {
	Station       string `json:"station"`
	EnergyAmount  uint64 `json:"energy_amount"`
	Cost          uint64 `json:"cost"`
	SuppliedFunds uint64 `json:"supplied_funds"`
}

type creditsRequest struct {
	Amount uint64 `json:"amount"`
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// RegisterVehicle handles POST /ledger/vehicles. The key is either vehicle_id or derived from vin.
func (h *LedgerHandlers) RegisterVehicle(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req registerVehicleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := ledger.VehicleID(strings.TrimSpace(req.VehicleID))
	switch {
	case id != "" && strings.TrimSpace(req.VIN) != "":
		writeError(w, http.StatusBadRequest, "provide either vehicle_id or vin, not both")
		return
	case strings.ContainsAny(string(id), "/?#"):
		writeError(w, http.StatusBadRequest, "vehicle_id must not contain '/', '?' or '#'")
		return
	case id == "":
		derived, err := ledger.VehicleIDFromVIN(req.VIN)
		if err != nil {
			writeError(w, http.StatusBadRequest, "vehicle_id or vin is required")
			return
		}
		id = derived
	}

	receipt, err := h.svc.RegisterVehicle(r.Context(), id, strings.TrimSpace(req.Model), strings.TrimSpace(req.BatteryCapacity), caller)
	if err != nil {
		h.fail(w, "register vehicle", err)
		return
	}
	vehicle, err := h.svc.VehicleInfo(id)
	if err != nil {
		h.fail(w, "register vehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"vehicle": vehicle,
		"events":  receipt.Events,
	})
}

// Vehicle handles GET /ledger/vehicles/{id}.
func (h *LedgerHandlers) Vehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.svc.VehicleInfo(ledger.VehicleID(r.PathValue("id")))
	if err != nil {
		h.fail(w, "vehicle info", err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Credits handles GET /ledger/vehicles/{id}/credits.
func (h *LedgerHandlers) Credits(w http.ResponseWriter, r *http.Request) {
	id := ledger.VehicleID(r.PathValue("id"))
	credits, err := h.svc.AvailableEnergyCredits(id)
	if err != nil {
		h.fail(w, "energy credits", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle_id": id,
		"credits":    credits,
	})
}

// AddCredits handles POST /ledger/vehicles/{id}/credits.
func (h *LedgerHandlers) AddCredits(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req creditsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := ledger.VehicleID(r.PathValue("id"))
	if _, err := h.svc.AddEnergyCredits(r.Context(), id, req.Amount, caller); err != nil {
		h.fail(w, "add energy credits", err)
		return
	}
	credits, err := h.svc.AvailableEnergyCredits(id)
	if err != nil {
		h.fail(w, "add energy credits", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle_id": id,
		"credits":    credits,
	})
}

// RecordSession handles POST /ledger/vehicles/{id}/sessions; the caller is the station.
func (h *LedgerHandlers) RecordSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Station != "" {
		writeError(w, http.StatusBadRequest, "station is taken from the caller on this route")
		return
	}

	receipt, err := h.svc.RecordChargingSession(r.Context(), ledger.VehicleID(r.PathValue("id")), req.EnergyAmount, req.Cost, caller, req.SuppliedFunds)
	if err != nil {
		h.fail(w, "record charging session", err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// RecordOwnerSession handles POST /ledger/vehicles/{id}/owner-sessions.
func (h *LedgerHandlers) RecordOwnerSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	station := identity.Normalize(req.Station)
	receipt, err := h.svc.RecordOwnerChargingSession(r.Context(), ledger.VehicleID(r.PathValue("id")), req.EnergyAmount, req.Cost, station, caller, req.SuppliedFunds)
	if err != nil {
		h.fail(w, "record owner charging session", err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// Session handles GET /ledger/sessions/{id}.
func (h *LedgerHandlers) Session(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.svc.ChargingSession(id)
	if err != nil {
		h.fail(w, "charging session", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// OwnerVehicles handles GET /ledger/owners/{identity}/vehicles.
func (h *LedgerHandlers) OwnerVehicles(w http.ResponseWriter, r *http.Request) {
	owner := identity.Normalize(r.PathValue("identity"))
	h.writeOwnerVehicles(w, owner)
}

// MyVehicles handles GET /ledger/me/vehicles.
func (h *LedgerHandlers) MyVehicles(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.writeOwnerVehicles(w, caller)
}

// Transfer handles POST /ledger/transfers.
func (h *LedgerHandlers) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.svc.TransferEnergyCredits(r.Context(), ledger.VehicleID(req.From), ledger.VehicleID(req.To), req.Amount, caller)
	if err != nil {
		h.fail(w, "transfer energy credits", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// Stats handles GET /ledger/stats.
func (h *LedgerHandlers) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

func (h *LedgerHandlers) writeOwnerVehicles(w http.ResponseWriter, owner ledger.Identity) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":    owner,
		"vehicles": h.svc.OwnerVehicles(owner),
	})
}

func (h *LedgerHandlers) caller(w http.ResponseWriter, r *http.Request) (ledger.Identity, bool) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return "", false
	}
	return caller, true
}

func (h *LedgerHandlers) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("ledger request failed", zap.String("op", op), zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
