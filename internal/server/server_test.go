package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opsdesk/fncall/internal/config"
	"github.com/opsdesk/fncall/internal/server"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.DashScopeAPIKey = "sk-test"
	cfg.EnableAuditLogging = false
	return cfg
}

func TestBuildRegistersBuiltinTools(t *testing.T) {
	deps, err := server.Build(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer deps.Close()

	var names []string
	for _, s := range deps.Tools.Specs() {
		names = append(names, s.Name)
	}
	got := strings.Join(names, ",")
	if got != "get_current_weather,get_current_status" {
		t.Errorf("tools = %s", got)
	}
	if deps.BigQuery != nil || deps.Search != nil {
		t.Error("data services should be off without configuration")
	}
}

func TestBuildMissingAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.DashScopeAPIKey = ""
	if _, err := server.Build(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected an error without an API key")
	}
}

func TestRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.EnableAuth = true
	cfg.APIKeys = []string{"secret"}

	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"tools need a key", http.MethodGet, "/api/v1/tools", "", http.StatusUnauthorized},
		{"tools", http.MethodGet, "/api/v1/tools", "secret", http.StatusOK},
		{"unknown transcript", http.MethodGet, "/api/v1/conversations/1b4e28ba-2fa1-11d2-883f-0016d3cca427", "secret", http.StatusNotFound},
		{"bad transcript id", http.MethodGet, "/api/v1/conversations/nope", "secret", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("missing request id")
			}
		})
	}
}

func TestToolsEndpointListsSchemas(t *testing.T) {
	srv, err := server.New(context.Background(), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Tools []struct {
			Name       string          `json:"name"`
			Parameters json.RawMessage `json:"parameters"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tools) != 2 || !strings.Contains(string(body.Tools[0].Parameters), "location") {
		t.Errorf("tools = %s", rr.Body.String())
	}
}
