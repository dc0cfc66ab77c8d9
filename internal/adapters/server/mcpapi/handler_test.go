package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hylla/worklog/internal/adapters/server/common"
	"github.com/hylla/worklog/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubWorklogService provides deterministic worklog responses for MCP tool tests.
type stubWorklogService struct {
	status      common.MonitoringStatus
	activities  []domain.Activity
	summaries   []domain.Summary
	generated   common.GenerateSummaryResult
	stats       domain.Statistics
	err         error
	started     int
	stopped     int
	lastList    common.ListActivitiesRequest
	lastSummary common.ListSummariesRequest
	lastStats   common.StatisticsRequest
}

func (s *stubWorklogService) MonitoringStatus(context.Context) (common.MonitoringStatus, error) {
	return s.status, s.err
}

func (s *stubWorklogService) StartMonitoring(context.Context) (common.MonitoringStatus, error) {
	s.started++
	s.status.Running = true
	return s.status, s.err
}

func (s *stubWorklogService) StopMonitoring(context.Context) (common.MonitoringStatus, error) {
	s.stopped++
	s.status.Running = false
	return s.status, s.err
}

func (s *stubWorklogService) ListActivities(_ context.Context, req common.ListActivitiesRequest) ([]domain.Activity, error) {
	s.lastList = req
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Activity(nil), s.activities...), nil
}

func (s *stubWorklogService) DeleteActivity(context.Context, string) error {
	return s.err
}

func (s *stubWorklogService) ListSummaries(_ context.Context, req common.ListSummariesRequest) ([]domain.Summary, error) {
	s.lastSummary = req
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Summary(nil), s.summaries...), nil
}

func (s *stubWorklogService) GenerateSummary(context.Context) (common.GenerateSummaryResult, error) {
	return s.generated, s.err
}

func (s *stubWorklogService) DeleteSummary(context.Context, string) error {
	return s.err
}

func (s *stubWorklogService) Statistics(_ context.Context, req common.StatisticsRequest) (domain.Statistics, error) {
	s.lastStats = req
	return s.stats, s.err
}

func (s *stubWorklogService) Cleanup(context.Context, common.CleanupRequest) (domain.CleanupResult, error) {
	return domain.CleanupResult{}, s.err
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "worklog-test",
				"version": "1.0.0",
			},
		},
	}
}

// callToolResultText decodes the first textual content block from a CallToolResult.
func callToolResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatalf("result = nil, want non-nil")
	}
	if len(result.Content) == 0 {
		t.Fatalf("result content is empty")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] has unexpected type %T", result.Content[0])
	}
	return text.Text
}

// newTestServer starts one MCP handler over a stub service.
func newTestServer(t *testing.T, service common.WorklogService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, service)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// TestHandlerUsesStatelessTransport verifies initialize succeeds without a session header.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubWorklogService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersWorklogTools verifies tool discovery lists every worklog tool.
func TestHandlerRegistersWorklogTools(t *testing.T) {
	server := newTestServer(t, &stubWorklogService{})
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, want := range []string{
		"worklog.monitoring_status",
		"worklog.start_monitoring",
		"worklog.stop_monitoring",
		"worklog.list_activities",
		"worklog.list_summaries",
		"worklog.statistics",
		"worklog.generate_summary",
	} {
		if !slices.Contains(toolNames, want) {
			t.Fatalf("tool list missing %s: %#v", want, toolNames)
		}
	}
}

// TestHandlerListActivitiesToolCall verifies arguments reach the service and rows come back structured.
func TestHandlerListActivitiesToolCall(t *testing.T) {
	service := &stubWorklogService{
		activities: []domain.Activity{{
			ID:          "a1",
			Timestamp:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			ProcessName: "code",
			WindowTitle: "main.go",
			Platform:    domain.PlatformLinux,
		}},
	}
	server := newTestServer(t, service)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "worklog.list_activities", map[string]any{
		"from": "2026-03-01",
		"to":   "2026-03-02",
	}))
	if isError, _ := resp.Result["isError"].(bool); isError {
		t.Fatalf("isError = true, text = %q", toolResultText(t, resp.Result))
	}
	if service.lastList.From != "2026-03-01" || service.lastList.To != "2026-03-02" || service.lastList.Date != "" {
		t.Fatalf("request = %#v, want from/to span", service.lastList)
	}
	structured := toolResultStructured(t, resp.Result)
	rows, ok := structured["activities"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("activities = %#v, want one row", structured["activities"])
	}
	row, _ := rows[0].(map[string]any)
	if row["processName"] != "code" {
		t.Fatalf("processName = %#v, want code", row["processName"])
	}
}

// TestHandlerSummaryAndStatisticsToolCalls verifies date arguments and structured payloads.
func TestHandlerSummaryAndStatisticsToolCalls(t *testing.T) {
	summary := domain.Summary{ID: "s1", SummaryText: "Wrote tests.", ActivityCount: 2}
	service := &stubWorklogService{
		summaries: []domain.Summary{summary},
		generated: common.GenerateSummaryResult{Generated: true, Summary: &summary},
		stats: domain.Statistics{
			TotalActivities:     2,
			UniqueApplications:  1,
			MostUsedApplication: &domain.ApplicationUsage{Name: "code", Count: 2},
		},
	}
	server := newTestServer(t, service)

	_, listResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "worklog.list_summaries", map[string]any{"date": "2026-03-02"}))
	if service.lastSummary.Date != "2026-03-02" {
		t.Fatalf("summary date = %q, want 2026-03-02", service.lastSummary.Date)
	}
	if rows, _ := toolResultStructured(t, listResp.Result)["summaries"].([]any); len(rows) != 1 {
		t.Fatalf("summaries = %#v, want one row", rows)
	}

	_, statsResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "worklog.statistics", map[string]any{}))
	stats := toolResultStructured(t, statsResp.Result)
	if stats["totalActivities"] != float64(2) {
		t.Fatalf("totalActivities = %#v, want 2", stats["totalActivities"])
	}
	if service.lastStats.Date != "" {
		t.Fatalf("stats date = %q, want empty (today)", service.lastStats.Date)
	}

	_, genResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "worklog.generate_summary", map[string]any{}))
	generated := toolResultStructured(t, genResp.Result)
	if generated["generated"] != true {
		t.Fatalf("generated = %#v, want true", generated["generated"])
	}
	body, _ := generated["summary"].(map[string]any)
	if body["summary"] != "Wrote tests." {
		t.Fatalf("summary text = %#v, want Wrote tests.", body["summary"])
	}
}

// TestHandlerMonitoringToolCalls verifies the lifecycle tools reach the service.
func TestHandlerMonitoringToolCalls(t *testing.T) {
	service := &stubWorklogService{status: common.MonitoringStatus{CurrentApp: "code"}}
	server := newTestServer(t, service)

	_, startResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "worklog.start_monitoring", map[string]any{}))
	if running := toolResultStructured(t, startResp.Result)["running"]; running != true {
		t.Fatalf("running = %#v, want true", running)
	}
	_, stopResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "worklog.stop_monitoring", map[string]any{}))
	if running := toolResultStructured(t, stopResp.Result)["running"]; running != false {
		t.Fatalf("running = %#v, want false", running)
	}
	_, statusResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "worklog.monitoring_status", map[string]any{}))
	if app := toolResultStructured(t, statusResp.Result)["current_app"]; app != "code" {
		t.Fatalf("current_app = %#v, want code", app)
	}
	if service.started != 1 || service.stopped != 1 {
		t.Fatalf("started/stopped = %d/%d, want 1/1", service.started, service.stopped)
	}
}

// TestHandlerToolCallErrorMapping verifies service failures become tool errors.
func TestHandlerToolCallErrorMapping(t *testing.T) {
	service := &stubWorklogService{err: errors.Join(common.ErrInvalidRequest, errors.New("bad date"))}
	server := newTestServer(t, service)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "worklog.list_activities", map[string]any{"date": "yesterday"}))
	if isError, _ := resp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = false, want true: %#v", resp.Result)
	}
	if got := toolResultText(t, resp.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("text = %q, want invalid_request prefix", got)
	}
}

// TestNewHandlerRequiresService verifies construction fails closed without a service.
func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("NewHandler() error = nil, want error")
	}
}

// TestNormalizeConfig verifies defaults and endpoint-path canonicalization.
func TestNormalizeConfig(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "defaults",
			in:   Config{},
			want: Config{ServerName: "worklog", ServerVersion: "dev", EndpointPath: "/mcp"},
		},
		{
			name: "trims and prefixes path",
			in:   Config{ServerName: " wl ", ServerVersion: " 1.2.3 ", EndpointPath: "tools/mcp/"},
			want: Config{ServerName: "wl", ServerVersion: "1.2.3", EndpointPath: "/tools/mcp"},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeConfig(tt.in); got != tt.want {
				t.Fatalf("normalizeConfig() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestHandlerServeHTTPUnavailable verifies nil handlers fail with 503.
func TestHandlerServeHTTPUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler *Handler
	}{
		{name: "nil receiver", handler: nil},
		{name: "missing inner http handler", handler: &Handler{}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
			}
			if !strings.Contains(rec.Body.String(), "mcp handler unavailable") {
				t.Fatalf("body = %q, want mcp handler unavailable", rec.Body.String())
			}
		})
	}
}

// TestToolResultFromErrorMapping verifies deterministic error-to-tool-result mapping.
func TestToolResultFromErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{name: "nil error", err: nil, wantPrefix: "unknown error"},
		{name: "invalid request", err: errors.Join(common.ErrInvalidRequest, errors.New("bad")), wantPrefix: "invalid_request:"},
		{name: "not found", err: errors.Join(common.ErrNotFound, errors.New("missing")), wantPrefix: "not_found:"},
		{name: "not configured", err: errors.Join(common.ErrNotConfigured, errors.New("no key")), wantPrefix: "not_configured:"},
		{name: "upstream", err: errors.Join(common.ErrUpstream, errors.New("502")), wantPrefix: "upstream_failed:"},
		{name: "internal", err: errors.New("boom"), wantPrefix: "internal_error:"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			result := toolResultFromError(tt.err)
			if !result.IsError {
				t.Fatalf("IsError = false, want true")
			}
			if got := callToolResultText(t, result); !strings.HasPrefix(got, tt.wantPrefix) {
				t.Fatalf("text = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}
