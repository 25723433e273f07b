package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rbpanama/idbhealth/core"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg  *contract.Config
	mgr      contract.HistoryManager
	provider ProviderFunc
}

// resolveConfig clones the base config and switches environment when requested.
func (h *toolHandler) resolveConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	if env := request.GetString("env", ""); env != "" {
		if err := cfg.SelectEnvironment(env); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (h *toolHandler) assess(ctx context.Context, cfg *contract.Config, scope schema.Scope) (schema.HealthSnapshot, error) {
	return core.GetHealthSnapshot(core.WithSuppressHeader(ctx), cfg, h.provider(cfg), h.mgr, scope)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleAssessWarehouse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.resolveConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	scope := schema.Scope(request.GetString("scope", string(schema.FullScope)))
	if _, ok := schema.ValidScopes[scope]; !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: unknown scope %q", scope)), nil
	}

	snapshot, err := h.assess(ctx, cfg, scope)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assessment failed: %v", err)), nil
	}
	return jsonResult(snapshot)
}

func (h *toolHandler) handleGetTableFreshness(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.resolveConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	statuses, err := schema.ParseStatuses(request.GetString("status", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	snapshot, err := h.assess(ctx, cfg, schema.TablesScope)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assessment failed: %v", err)), nil
	}
	return jsonResult(struct {
		GeneratedAt string               `json:"generated_at"`
		Tables      []schema.TableStatus `json:"tables"`
		Warnings    []schema.Warning     `json:"warnings,omitempty"`
	}{
		GeneratedAt: snapshot.GeneratedAt.Format(contract.DateTimeFormat),
		Tables:      schema.FilterTables(snapshot.Tables, statuses, request.GetString("schema", "")),
		Warnings:    snapshot.Warnings,
	})
}

func (h *toolHandler) handleGetTriggerHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.resolveConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	snapshot, err := h.assess(ctx, cfg, schema.TriggersScope)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assessment failed: %v", err)), nil
	}

	if code := request.GetString("country", ""); code != "" {
		c, ok := snapshot.Country(code)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no trigger summary for country %q", schema.NormalizeCountry(code))), nil
		}
		return jsonResult(c)
	}

	var noActivity *bool
	if args := request.GetArguments(); args != nil {
		if _, set := args["no_activity"]; set {
			want := request.GetBool("no_activity", false)
			noActivity = &want
		}
	}
	return jsonResult(struct {
		GeneratedAt       string                         `json:"generated_at"`
		InactiveCountries []string                       `json:"inactive_countries"`
		FailedFamilies    []schema.AlertFamily           `json:"failed_families"`
		Countries         []schema.CountryTriggerSummary `json:"countries"`
		Warnings          []schema.Warning               `json:"warnings,omitempty"`
	}{
		GeneratedAt:       snapshot.GeneratedAt.Format(contract.DateTimeFormat),
		InactiveCountries: snapshot.InactiveCountries(),
		FailedFamilies:    snapshot.FailedFamilies(),
		Countries:         schema.FilterCountries(snapshot.Countries, noActivity),
		Warnings:          snapshot.Warnings,
	})
}
