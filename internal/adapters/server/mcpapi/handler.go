// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/worklog/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the worklog tools.
func NewHandler(cfg Config, service common.WorklogService) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("worklog service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerMonitoringTools(mcpSrv, service)
	registerQueryTools(mcpSrv, service)
	registerSummaryTools(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "worklog"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerMonitoringTools registers the monitoring lifecycle tools.
func registerMonitoringTools(srv *mcpserver.MCPServer, service common.WorklogService) {
	transitions := []struct {
		name        string
		description string
		run         func(context.Context) (common.MonitoringStatus, error)
	}{
		{"worklog.monitoring_status", "Report whether activity monitoring is running and which application has focus.", service.MonitoringStatus},
		{"worklog.start_monitoring", "Start periodic activity sampling. Starting twice is a no-op.", service.StartMonitoring},
		{"worklog.stop_monitoring", "Stop periodic activity sampling. Stopping twice is a no-op.", service.StopMonitoring},
	}
	for _, transition := range transitions {
		srv.AddTool(
			mcp.NewTool(transition.name, mcp.WithDescription(transition.description)),
			func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				status, err := transition.run(ctx)
				if err != nil {
					return toolResultFromError(err), nil
				}
				return jsonResult(transition.name, status)
			},
		)
	}
}

// registerQueryTools registers the activity, summary, and statistics read tools.
func registerQueryTools(srv *mcpserver.MCPServer, service common.WorklogService) {
	srv.AddTool(
		mcp.NewTool(
			"worklog.list_activities",
			mcp.WithDescription("List recorded window-focus activities for one day or an inclusive date span."),
			mcp.WithString("date", mcp.Description("Calendar date YYYY-MM-DD (defaults to today)")),
			mcp.WithString("from", mcp.Description("First date YYYY-MM-DD of a span; requires to")),
			mcp.WithString("to", mcp.Description("Last date YYYY-MM-DD of a span; requires from")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			activities, err := service.ListActivities(ctx, common.ListActivitiesRequest{
				Date: req.GetString("date", ""),
				From: req.GetString("from", ""),
				To:   req.GetString("to", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_activities", common.ActivityList{Activities: activities})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"worklog.list_summaries",
			mcp.WithDescription("List generated work summaries for one day."),
			mcp.WithString("date", mcp.Description("Calendar date YYYY-MM-DD (defaults to today)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			summaries, err := service.ListSummaries(ctx, common.ListSummariesRequest{
				Date: req.GetString("date", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_summaries", common.SummaryList{Summaries: summaries})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"worklog.statistics",
			mcp.WithDescription("Return activity counts, the most used application, and the timeline for one day."),
			mcp.WithString("date", mcp.Description("Calendar date YYYY-MM-DD (defaults to today)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			stats, err := service.Statistics(ctx, common.StatisticsRequest{
				Date: req.GetString("date", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("statistics", stats)
		},
	)
}

// registerSummaryTools registers the on-demand summary tool.
func registerSummaryTools(srv *mcpserver.MCPServer, service common.WorklogService) {
	srv.AddTool(
		mcp.NewTool(
			"worklog.generate_summary",
			mcp.WithDescription("Summarize the recent lookback window now. generated=false means there was nothing to summarize."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := service.GenerateSummary(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("generate_summary", result)
		},
	)
}

// jsonResult encodes one structured tool result.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrNotConfigured):
		return mcp.NewToolResultError("not_configured: " + err.Error())
	case errors.Is(err, common.ErrUpstream):
		return mcp.NewToolResultError("upstream_failed: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
