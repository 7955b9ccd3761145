package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"signal-core/internal/engine"
	"signal-core/internal/events"
	"signal-core/internal/fusion"
	"signal-core/internal/indicators"
	"signal-core/internal/monitor"
	"signal-core/internal/orchestrator"
	"signal-core/internal/regime"
	"signal-core/internal/strategy"
	"signal-core/pkg/db"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	configs := []strategy.Config{
		{ID: "ema_cross", Name: "EMA Cross", Type: "ema_cross", Symbol: "BTCUSDT", Interval: "5m", IsActive: true},
	}
	if err := strategy.SyncConfigToDB(database.DB, configs); err != nil {
		t.Fatalf("sync config: %v", err)
	}
	registry := strategy.BuildRegistry(configs)

	bus := events.NewBus()
	ind := indicators.NewEngine(120)
	orch := orchestrator.New(orchestrator.Config{
		Enabled:           true,
		LossStreakDisable: 3,
	}, nil)
	fus := fusion.NewEngine(registry, ind, bus, fusion.Options{PrimaryInterval: "5m"})
	metrics := monitor.NewSystemMetrics()

	svc := engine.NewImpl(engine.Config{
		Fusion:          fus,
		Orchestrator:    orch,
		Registry:        registry,
		Indicators:      ind,
		Detector:        regime.NewDetector(),
		Bus:             bus,
		DB:              database,
		Metrics:         metrics,
		PrimaryInterval: "5m",
		Meta:            engine.SystemStatus{Symbols: []string{"BTCUSDT"}, PrimaryInterval: "5m"},
	})

	return NewServer(bus, database, svc, metrics, nil, testSecret)
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func authToken(t *testing.T, s *Server) string {
	t.Helper()
	creds := map[string]string{"email": "ops@example.com", "password": "secret123"}
	if w := doJSON(t, s, http.MethodPost, "/api/auth/register", "", creds); w.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", w.Code, w.Body.String())
	}
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("no token in login response: %s", w.Body.String())
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/strategies", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestRegisterLoginAndListStrategies(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	w := doJSON(t, s, http.MethodGet, "/api/strategies", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Strategies []engine.StrategyInfo `json:"strategies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Strategies) != 1 || resp.Strategies[0].ID != "ema_cross" {
		t.Errorf("strategies = %+v", resp.Strategies)
	}
	if !resp.Strategies[0].Registered {
		t.Error("expected strategy to be registered")
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"email": "dup@example.com", "password": "secret123"}
	if w := doJSON(t, s, http.MethodPost, "/api/auth/register", "", creds); w.Code != http.StatusCreated {
		t.Fatalf("first register: %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodPost, "/api/auth/register", "", creds); w.Code != http.StatusConflict {
		t.Fatalf("second register: %d, want 409", w.Code)
	}
}

func TestStrategyToggle(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/strategies/ema_cross/deactivate", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/strategies/missing/activate", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("activate missing: %d, want 404", w.Code)
	}
}

func TestRecordTradeAndCooldownVisible(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	for i := 0; i < 3; i++ {
		w := doJSON(t, s, http.MethodPost, "/api/trades", token, map[string]any{
			"strategy_id": "ema_cross",
			"pnl":         -10.0,
		})
		if w.Code != http.StatusAccepted {
			t.Fatalf("record trade: %d: %s", w.Code, w.Body.String())
		}
	}

	w := doJSON(t, s, http.MethodGet, "/api/strategies/ema_cross/eligibility", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("eligibility: %d", w.Code)
	}
	var resp struct {
		Allow  bool   `json:"allow"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Allow {
		t.Fatalf("expected cooldown denial, got %+v", resp)
	}
}

func TestRecordTradeValidation(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/trades", token, map[string]any{"strategy_id": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestEvaluateWithoutDataHolds(t *testing.T) {
	s := newTestServer(t)
	token := authToken(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/evaluate/btcusdt", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate: %d: %s", w.Code, w.Body.String())
	}
	var intent strategy.OrderIntent
	if err := json.Unmarshal(w.Body.Bytes(), &intent); err != nil {
		t.Fatal(err)
	}
	if intent.Action != strategy.ActionHold || intent.Reason != "no_primary_data" {
		t.Errorf("intent = %+v", intent)
	}

	// The decision is cached for the symbol.
	w = doJSON(t, s, http.MethodGet, "/api/decisions/BTCUSDT", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("last decision: %d", w.Code)
	}
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/system/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var status engine.SystemStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.PrimaryInterval != "5m" {
		t.Errorf("status = %+v", status)
	}
}
