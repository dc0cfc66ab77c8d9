package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/worklog/internal/adapters/server/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TestNewHandlerRoutes verifies health, API, and metrics endpoints are mounted.
func TestNewHandlerRoutes(t *testing.T) {
	handler, cfg, err := NewHandler(Config{}, Dependencies{
		Service: common.NewAppServiceAdapter(nil),
		Metrics: promhttp.Handler(),
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != "127.0.0.1:7457" || cfg.ServerName != "worklog" {
		t.Fatalf("normalized config = %#v, want worklog defaults", cfg)
	}

	cases := []struct {
		target     string
		wantStatus int
		wantBody   string
	}{
		{target: "/healthz", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{target: "/readyz", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{target: "/api/v1/monitoring", wantStatus: http.StatusServiceUnavailable, wantBody: "service_unavailable"},
		{target: "/metrics", wantStatus: http.StatusOK, wantBody: "go_goroutines"},
	}
	for _, tt := range cases {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body = %q, want substring %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

// TestNewHandlerWithoutMetrics verifies the metrics route is optional.
func TestNewHandlerWithoutMetrics(t *testing.T) {
	handler, _, err := NewHandler(Config{}, Dependencies{Service: common.NewAppServiceAdapter(nil)})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// TestNewHandlerRequiresService verifies construction fails closed without a service.
func TestNewHandlerRequiresService(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("NewHandler() error = nil, want error")
	}
}

// TestNormalizeConfig verifies defaults and endpoint collision checks.
func TestNormalizeConfig(t *testing.T) {
	cfg, err := normalizeConfig(Config{HTTPBind: " :9000 ", APIEndpoint: "api/", MCPEndpoint: "/tools/mcp/"})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.HTTPBind != ":9000" || cfg.APIEndpoint != "/api" || cfg.MCPEndpoint != "/tools/mcp" || cfg.MetricsEndpoint != "/metrics" {
		t.Fatalf("normalizeConfig() = %#v", cfg)
	}

	if _, err := normalizeConfig(Config{APIEndpoint: "/x", MCPEndpoint: "x"}); err == nil {
		t.Fatal("normalizeConfig() error = nil, want api/mcp collision")
	}
	if _, err := normalizeConfig(Config{MetricsEndpoint: "/mcp"}); err == nil {
		t.Fatal("normalizeConfig() error = nil, want metrics collision")
	}
	if got := normalizeEndpoint("/", "/fallback"); got != "/fallback" {
		t.Fatalf("normalizeEndpoint(/) = %q, want /fallback", got)
	}
}

// TestRunShutsDownOnCancel verifies Run serves until its context is canceled.
func TestRunShutsDownOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := listener.Addr().String()
	if err := listener.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: addr}, Dependencies{Service: common.NewAppServiceAdapter(nil)})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if !strings.Contains(string(body), "ok") {
				t.Fatalf("healthz body = %q, want ok", body)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

// TestRunRejectsInvalidConfig verifies startup fails before listening.
func TestRunRejectsInvalidConfig(t *testing.T) {
	err := Run(context.Background(), Config{}, Dependencies{})
	if err == nil || !strings.Contains(err.Error(), "build server handler") {
		t.Fatalf("Run() error = %v, want build server handler error", err)
	}
}
