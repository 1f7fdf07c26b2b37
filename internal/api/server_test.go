package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/railgate/railgate-core/internal/audit"
	"github.com/railgate/railgate-core/internal/infrastructure/config"
	"github.com/railgate/railgate-core/internal/infrastructure/logging"
	"github.com/railgate/railgate-core/internal/platform"
)

func testDescription() *platform.Description {
	return &platform.Description{
		Board: "sim-test",
		Domains: []platform.DomainSpec{
			{
				Name:    "gpu_cx",
				Windows: map[string]platform.WindowSpec{platform.WindowMain: {Region: "gpucc", Offset: 0x9108}},
				Flags:   platform.DomainFlags{HWTrigger: true},
			},
			{
				Name:    "gpu_gx",
				Windows: map[string]platform.WindowSpec{platform.WindowMain: {Region: "gpucc", Offset: 0x905c}},
				Parent:  "gpu_cx",
			},
		},
	}
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE transition_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		operation TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_us INTEGER NOT NULL DEFAULT 0,
		poll_reads INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	) STRICT;
	CREATE TABLE audit_logs (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		domain TEXT,
		actor TEXT,
		source TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		details TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}
	return db
}

// newTestServer builds a server over a simulated platform with
// sqlite-backed history and audit stores.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	logger := logging.New(config.LoggingConfig{Level: "error", Output: "stderr"}, "test")

	desc := testDescription()
	if err := desc.Validate(); err != nil {
		t.Fatalf("validating description: %v", err)
	}

	sim := platform.NewSimulator()
	domains, err := platform.Build(desc, sim.Providers(), logger)
	if err != nil {
		t.Fatalf("building platform: %v", err)
	}

	registry := platform.NewRegistry(domains)

	db := setupTestDB(t)
	history := platform.NewSQLiteHistoryRepository(db)
	registry.AddObserver(platform.NewHistoryRecorder(history, logger))

	s, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   logger,
		Registry: registry,
		History:  history,
		Audit:    audit.NewSQLiteRepository(db),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, s.buildRouter()
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %s: %v", rec.Body.String(), err)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger expected error")
	}

	logger := logging.New(config.LoggingConfig{Level: "error"}, "test")
	if _, err := New(Deps{Logger: logger}); err == nil {
		t.Error("New() without registry expected error")
	}
}

func TestHandleHealth(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHandleListDomains(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/domains", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Domains []platform.Status `json:"domains"`
		Count   int               `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 || len(body.Domains) != 2 {
		t.Fatalf("count = %d, domains = %d, want 2", body.Count, len(body.Domains))
	}
	if body.Domains[0].Name != "gpu_cx" || body.Domains[1].Name != "gpu_gx" {
		t.Errorf("order = %s, %s", body.Domains[0].Name, body.Domains[1].Name)
	}
}

func TestHandleGetDomain(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/domains/gpu_gx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status platform.Status
	decodeBody(t, rec, &status)
	if status.Name != "gpu_gx" || !status.Enabled {
		t.Errorf("status = %+v", status)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/domains/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown domain status = %d, want 404", rec.Code)
	}
}

func TestHandleDisableEnable(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_gx/disable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("disable status = %d, body %s", rec.Code, rec.Body.String())
	}

	var event platform.Event
	decodeBody(t, rec, &event)
	if event.Operation != platform.OpDisable || event.Outcome != platform.OutcomeOK || event.Enabled {
		t.Errorf("event = %+v", event)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_gx/enable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("enable status = %d", rec.Code)
	}
	decodeBody(t, rec, &event)
	if !event.Enabled {
		t.Error("event reports disabled after enable")
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/v1/domains/nope/enable", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown domain status = %d, want 404", rec.Code)
	}
}

func TestHandleDisable_ParentConflict(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_cx/disable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("parent disable status = %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_gx/disable", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("child disable status = %d, want 409", rec.Code)
	}
}

func TestHandleSetMode(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPut, "/api/v1/domains/gpu_cx/mode", []byte(`{"mode":"fast"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("set mode status = %d, body %s", rec.Code, rec.Body.String())
	}

	var event platform.Event
	decodeBody(t, rec, &event)
	if event.Mode != "fast" {
		t.Errorf("event mode = %q, want fast", event.Mode)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/domains/gpu_cx", nil)
	var status platform.Status
	decodeBody(t, rec, &status)
	if status.Mode != "fast" {
		t.Errorf("status mode = %q, want fast", status.Mode)
	}

	// Malformed and invalid requests.
	rec = doRequest(t, handler, http.MethodPut, "/api/v1/domains/gpu_cx/mode", []byte(`{`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodPut, "/api/v1/domains/gpu_cx/mode", []byte(`{"mode":"warp"}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want 400", rec.Code)
	}

	// gpu_gx has no hardware trigger support.
	rec = doRequest(t, handler, http.MethodPut, "/api/v1/domains/gpu_gx/mode", []byte(`{"mode":"fast"}`))
	if rec.Code != http.StatusConflict {
		t.Errorf("unsupported domain status = %d, want 409", rec.Code)
	}
}

func TestHandleGetRegisters(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/domains/gpu_gx/registers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Domain    string   `json:"domain"`
		Registers []string `json:"registers"`
	}
	decodeBody(t, rec, &body)
	if body.Domain != "gpu_gx" || len(body.Registers) == 0 {
		t.Errorf("body = %+v", body)
	}
	for _, reg := range body.Registers {
		if len(reg) != 10 || reg[:2] != "0x" {
			t.Errorf("register %q is not a 32-bit hex word", reg)
		}
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/domains/nope/registers", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown domain status = %d, want 404", rec.Code)
	}
}

func TestHandleGetHistory(t *testing.T) {
	_, handler := newTestServer(t)

	// The history observer records transitions as they happen.
	doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_gx/disable", nil)
	doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_gx/enable", nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/domains/gpu_gx/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Domain      string                      `json:"domain"`
		Transitions []platform.TransitionRecord `json:"transitions"`
		Count       int                         `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/domains/gpu_gx/history?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/domains/nope/history", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown domain status = %d, want 404", rec.Code)
	}
}

func TestHandleListAudit(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/domains/gpu_gx/disable", nil)
	req.Header.Set("X-Actor", "ops")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("disable status = %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/audit?domain=gpu_gx&source=api", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result audit.ListResult
	decodeBody(t, rec, &result)
	if result.Total != 1 || len(result.Logs) != 1 {
		t.Fatalf("total/len = %d/%d, want 1/1", result.Total, len(result.Logs))
	}

	entry := result.Logs[0]
	if entry.Action != audit.ActionDisable || entry.Actor != "ops" || entry.Source != audit.SourceAPI {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Details["request_id"] == nil || entry.Details["event_id"] == nil {
		t.Errorf("details = %v, want request and event IDs", entry.Details)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/audit?limit=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestHistoryUnavailable(t *testing.T) {
	logger := logging.New(config.LoggingConfig{Level: "error"}, "test")
	desc := testDescription()
	sim := platform.NewSimulator()
	domains, err := platform.Build(desc, sim.Providers(), logger)
	if err != nil {
		t.Fatalf("building platform: %v", err)
	}

	s, err := New(Deps{
		Logger:   logger,
		Registry: platform.NewRegistry(domains),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	handler := s.buildRouter()

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/domains/gpu_gx/history", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("history status = %d, want 503", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodGet, "/api/v1/audit", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("audit status = %d, want 503", rec.Code)
	}

	// Transitions still work without the optional stores.
	rec = doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_gx/disable", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("disable status = %d, want 200", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	_, handler := newTestServer(t)

	doRequest(t, handler, http.MethodPost, "/api/v1/domains/gpu_gx/disable", nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats platform.Stats
	decodeBody(t, rec, &stats)
	if stats.TotalDomains != 2 || stats.Enabled != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestServerLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	if err := s.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start() expected error")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
