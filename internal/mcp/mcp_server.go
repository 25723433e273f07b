// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/internal/warehouse"
)

// ProviderFunc builds the connection provider for a resolved config.
type ProviderFunc func(cfg *contract.Config) contract.ConnectionProvider

// NewMCPServer initializes and configures the IDB health MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.HistoryManager, provider ProviderFunc) *server.MCPServer {
	s := server.NewMCPServer(
		"IDB Health Server",
		"1.0.0",
		server.WithLogging(),
	)

	if provider == nil {
		provider = func(cfg *contract.Config) contract.ConnectionProvider { return warehouse.NewProvider(cfg) }
	}
	h := &toolHandler{
		baseCfg:  baseCfg,
		mgr:      mgr,
		provider: provider,
	}

	envOption := mcp.WithString("env",
		mcp.Description("Warehouse environment (dev or prod). Defaults to the configured environment."),
		mcp.Enum("dev", "prod"),
	)

	// --- 1. Tool: assess_warehouse ---
	s.AddTool(mcp.NewTool("assess_warehouse",
		mcp.WithDescription("Run a health assessment of the IDB warehouse and return the full snapshot: table freshness, trigger activity per country and warnings."),
		envOption,
		mcp.WithString("scope", mcp.Description("Passes to run. Defaults to 'full'."), mcp.Enum("full", "tables", "triggers")),
	), h.handleAssessWarehouse)

	// --- 2. Tool: get_table_freshness ---
	s.AddTool(mcp.NewTool("get_table_freshness",
		mcp.WithDescription("Report the freshness band of every monitored table (Current, Recent, Outdated, Stale, Critical, Unknown)."),
		envOption,
		mcp.WithString("status", mcp.Description("Comma-separated statuses to keep, e.g. 'Stale,Critical'.")),
		mcp.WithString("schema", mcp.Description("Only report tables of this schema.")),
	), h.handleGetTableFreshness)

	// --- 3. Tool: get_trigger_health ---
	s.AddTool(mcp.NewTool("get_trigger_health",
		mcp.WithDescription("Report alert trigger activity per country, flagging enabled countries with no activity."),
		envOption,
		mcp.WithString("country", mcp.Description("ISO3 country code. Returns only that country's summary.")),
		mcp.WithBoolean("no_activity", mcp.Description("Only return countries whose enabled-no-activity flag matches.")),
	), h.handleGetTriggerHealth)

	return s
}

// StartMCPServer starts the IDB health MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.HistoryManager) error {
	s := NewMCPServer(baseCfg, mgr, nil)
	return server.ServeStdio(s)
}
