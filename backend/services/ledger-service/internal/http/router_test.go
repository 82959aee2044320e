package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"evledger/backend/services/ledger-service/internal/http/handlers"
	"evledger/backend/services/ledger-service/internal/identity"
	"evledger/backend/services/ledger-service/internal/ledger"
	"evledger/backend/services/ledger-service/internal/payment"
	"evledger/backend/services/ledger-service/internal/service"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	tokens  *identity.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zaptest.NewLogger(t)
	tokens := identity.NewTokenService("test-secret", time.Hour)
	svc := service.NewLedgerService(payment.NewTreasury(), logger)
	router := NewRouter(RouterDeps{
		LedgerHandlers: handlers.NewLedgerHandlers(svc, logger),
		HealthHandler:  handlers.NewHealthHandler(),
	}, identity.Middleware(tokens))
	return &testAPI{t: t, handler: Chain(router, Recoverer(logger), RequestLogger(logger)), tokens: tokens}
}

func (a *testAPI) do(method, path string, caller ledger.Identity, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		token, err := a.tokens.GenerateToken(caller)
		if err != nil {
			a.t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) expect(rec *httptest.ResponseRecorder, status int, into interface{}) {
	a.t.Helper()
	if rec.Code != status {
		a.t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if into != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
			a.t.Fatalf("decode response: %v", err)
		}
	}
}

func TestHealthAndMethodGuard(t *testing.T) {
	api := newTestAPI(t)
	api.expect(api.do(http.MethodGet, "/health", "", nil), http.StatusOK, nil)

	rec := api.do(http.MethodDelete, "/ledger/vehicles/V1/credits", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
		t.Fatalf("expected Allow header GET, POST, got %q", allow)
	}
}

func TestChargingFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	const owner ledger.Identity = "0xowner1"
	const station ledger.Identity = "0xstation"

	api.expect(api.do(http.MethodPost, "/ledger/vehicles", "", map[string]string{
		"vehicle_id": "V1", "model": "Model 3", "battery_capacity": "75kWh",
	}), http.StatusUnauthorized, nil)

	var registered struct {
		Vehicle ledger.Vehicle `json:"vehicle"`
		Events  []ledger.Event `json:"events"`
	}
	api.expect(api.do(http.MethodPost, "/ledger/vehicles", owner, map[string]string{
		"vehicle_id": "V1", "model": "Model 3", "battery_capacity": "75kWh",
	}), http.StatusCreated, &registered)
	if registered.Vehicle.Owner != owner || len(registered.Events) != 1 {
		t.Fatalf("unexpected registration %+v", registered)
	}

	api.expect(api.do(http.MethodPost, "/ledger/vehicles", "0xother", map[string]string{
		"vehicle_id": "V1", "model": "Leaf", "battery_capacity": "40kWh",
	}), http.StatusConflict, nil)

	var receipt service.Receipt
	api.expect(api.do(http.MethodPost, "/ledger/vehicles/V1/sessions", station, map[string]uint64{
		"energy_amount": 30, "cost": 100, "supplied_funds": 150,
	}), http.StatusCreated, &receipt)
	if receipt.SessionID != 1 || receipt.Refund != 50 || len(receipt.Events) != 2 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	api.expect(api.do(http.MethodPost, "/ledger/vehicles/V1/sessions", station, map[string]uint64{
		"energy_amount": 30, "cost": 100, "supplied_funds": 99,
	}), http.StatusPaymentRequired, nil)

	api.expect(api.do(http.MethodPost, "/ledger/vehicles/V1/owner-sessions", "0xintruder", map[string]interface{}{
		"station": "0xstation", "energy_amount": 5, "cost": 1, "supplied_funds": 1,
	}), http.StatusForbidden, nil)

	var session ledger.ChargingSession
	api.expect(api.do(http.MethodGet, "/ledger/sessions/1", "", nil), http.StatusOK, &session)
	if session.EnergyAmount != 30 || session.Station != station || !session.Completed {
		t.Fatalf("unexpected session %+v", session)
	}
	api.expect(api.do(http.MethodGet, "/ledger/sessions/2", "", nil), http.StatusNotFound, nil)
	api.expect(api.do(http.MethodGet, "/ledger/sessions/x", "", nil), http.StatusBadRequest, nil)

	var vehicle ledger.Vehicle
	api.expect(api.do(http.MethodGet, "/ledger/vehicles/V1", "", nil), http.StatusOK, &vehicle)
	if vehicle.TotalEnergyConsumed != 30 {
		t.Fatalf("expected 30 energy, got %d", vehicle.TotalEnergyConsumed)
	}

	var stats ledger.Stats
	api.expect(api.do(http.MethodGet, "/ledger/stats", "", nil), http.StatusOK, &stats)
	if stats.TotalVehiclesRegistered != 1 || stats.SessionCounter != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCreditsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	const owner ledger.Identity = "0xowner1"
	for _, id := range []string{"V1", "V2"} {
		api.expect(api.do(http.MethodPost, "/ledger/vehicles", owner, map[string]string{
			"vehicle_id": id, "model": "Ioniq", "battery_capacity": "58kWh",
		}), http.StatusCreated, nil)
	}

	api.expect(api.do(http.MethodPost, "/ledger/vehicles/V1/credits", owner, map[string]uint64{"amount": 100}), http.StatusOK, nil)
	api.expect(api.do(http.MethodPost, "/ledger/transfers", owner, map[string]interface{}{
		"from": "V1", "to": "V2", "amount": 40,
	}), http.StatusOK, nil)
	api.expect(api.do(http.MethodPost, "/ledger/transfers", owner, map[string]interface{}{
		"from": "V1", "to": "V2", "amount": 61,
	}), http.StatusConflict, nil)
	api.expect(api.do(http.MethodPost, "/ledger/transfers", owner, map[string]interface{}{
		"from": "V1", "to": "V1", "amount": 1,
	}), http.StatusBadRequest, nil)

	var credits struct {
		VehicleID string `json:"vehicle_id"`
		Credits   uint64 `json:"credits"`
	}
	api.expect(api.do(http.MethodGet, "/ledger/vehicles/V2/credits", "", nil), http.StatusOK, &credits)
	if credits.Credits != 40 {
		t.Fatalf("expected 40 credits, got %d", credits.Credits)
	}
	api.expect(api.do(http.MethodGet, "/ledger/vehicles/V9/credits", "", nil), http.StatusNotFound, nil)

	var mine struct {
		Vehicles []string `json:"vehicles"`
	}
	api.expect(api.do(http.MethodGet, "/ledger/me/vehicles", owner, nil), http.StatusOK, &mine)
	if len(mine.Vehicles) != 2 || mine.Vehicles[0] != "V1" || mine.Vehicles[1] != "V2" {
		t.Fatalf("unexpected vehicles %v", mine.Vehicles)
	}

	var other struct {
		Vehicles []string `json:"vehicles"`
	}
	api.expect(api.do(http.MethodGet, "/ledger/owners/0xnobody/vehicles", "", nil), http.StatusOK, &other)
	if other.Vehicles == nil || len(other.Vehicles) != 0 {
		t.Fatalf("expected empty vehicle list, got %v", other.Vehicles)
	}
}

func TestRegisterByVIN(t *testing.T) {
	api := newTestAPI(t)
	var registered struct {
		Vehicle ledger.Vehicle `json:"vehicle"`
	}
	api.expect(api.do(http.MethodPost, "/ledger/vehicles", "0xowner1", map[string]string{
		"vin": "5YJ3E1EA7KF317000", "model": "Model 3", "battery_capacity": "75kWh",
	}), http.StatusCreated, &registered)

	want, err := ledger.VehicleIDFromVIN("5YJ3E1EA7KF317000")
	if err != nil {
		t.Fatalf("derive id: %v", err)
	}
	if registered.Vehicle.ID != want {
		t.Fatalf("expected id %s, got %s", want, registered.Vehicle.ID)
	}

	api.expect(api.do(http.MethodPost, "/ledger/vehicles", "0xowner1", map[string]string{
		"vehicle_id": "V1", "vin": "5YJ3E1EA7KF317000", "model": "Model 3", "battery_capacity": "75kWh",
	}), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodPost, "/ledger/vehicles", "0xowner1", map[string]string{
		"model": "Model 3", "battery_capacity": "75kWh",
	}), http.StatusBadRequest, nil)
}

func TestRejectsMalformedBodies(t *testing.T) {
	api := newTestAPI(t)
	api.expect(api.do(http.MethodPost, "/ledger/transfers", "0xowner1", map[string]interface{}{
		"from": "V1", "to": "V2", "amount": -5,
	}), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodPost, "/ledger/transfers", "0xowner1", map[string]interface{}{
		"from": "V1", "to": "V2", "amount": 1, "memo": "x",
	}), http.StatusBadRequest, nil)
}

func TestRegisterRejectsUnroutableVehicleID(t *testing.T) {
	api := newTestAPI(t)
	for _, id := range []string{"fleet/V1", "V1?x", "V1#a"} {
		api.expect(api.do(http.MethodPost, "/ledger/vehicles", "0xowner1", map[string]string{
			"vehicle_id": id, "model": "Leaf", "battery_capacity": "40kWh",
		}), http.StatusBadRequest, nil)
	}

	var stats ledger.Stats
	api.expect(api.do(http.MethodGet, "/ledger/stats", "", nil), http.StatusOK, &stats)
	if stats.TotalVehiclesRegistered != 0 {
		t.Fatalf("expected no vehicles registered, got %d", stats.TotalVehiclesRegistered)
	}
}
