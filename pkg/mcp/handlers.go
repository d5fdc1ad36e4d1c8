package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/db"
	"github.com/urmzd/hbconsole/pkg/setupcode"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	bridgeStatus := "reachable"
	if _, err := s.client.ListServices(callCtx); err != nil {
		switch {
		case errors.Is(err, accessory.ErrNotConfigured):
			bridgeStatus = "not_configured"
		case errors.Is(err, accessory.ErrAuthRequired):
			bridgeStatus = "unauthorized"
		default:
			bridgeStatus = "unreachable"
		}
	}

	status := "healthy"
	if bridgeStatus != "reachable" {
		status = "unhealthy"
	}

	out := GetHealthOutput{
		Status:    status,
		Bridge:    bridgeStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListAccessories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	services, err := s.client.ListServices(callCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list accessories: %s", err)), nil
	}

	typeFilter, _ := request.GetArguments()["type"].(string)

	infos := make([]AccessoryInfo, 0, len(services))
	for i := range services {
		if typeFilter != "" && !strings.EqualFold(services[i].Type, typeFilter) {
			continue
		}
		infos = append(infos, ServiceToInfo(&services[i]))
	}

	out := ListAccessoriesOutput{
		Accessories: infos,
		Count:       len(infos),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSetCharacteristic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aid, err := requiredInt(request, "aid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	siid, err := requiredInt(request, "siid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	iid, err := requiredInt(request, "iid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawValue, err := requiredString(request, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value := parseValue(rawValue)

	// Same checks as an accessory-control message from the UI
	if s.validator != nil {
		msg := map[string]any{"set": map[string]any{
			"aid":   json.Number(fmt.Sprint(aid)),
			"siid":  json.Number(fmt.Sprint(siid)),
			"iid":   json.Number(fmt.Sprint(iid)),
			"value": toSchemaValue(value),
		}}
		if err := s.validator.Validate(schema.ControlMessage, msg); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("validation error: %s", err)), nil
		}
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	services, err := s.client.ListServices(callCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load accessories: %s", err)), nil
	}

	svc := accessory.FindService(services, aid, siid)
	if svc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no service with aid %d and siid %d", aid, siid)), nil
	}

	if err := s.client.SetCharacteristic(callCtx, svc, iid, value); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set characteristic: %s", err)), nil
	}

	// Best effort; the write already succeeded
	_ = s.client.RefreshCharacteristics(callCtx, svc)

	out := SetCharacteristicOutput{
		Success:   true,
		Accessory: ServiceToInfo(svc),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetSetupCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := s.coder.SetupCode()
	if err != nil {
		if errors.Is(err, setupcode.ErrNoPairingInfo) {
			return mcp.NewToolResultError("pairing info not found: Homebridge has not been started with this bridge username yet"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to read setup code: %s", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(GetSetupCodeOutput{SetupCode: code})), nil
}

func (s *Server) handleRestartBridge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.restarter.Restart()

	out := RestartBridgeOutput{
		Success: result.OK,
		Command: result.Command,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetAccessoryLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := requiredString(request, "user")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := GetAccessoryLayoutOutput{
		User:   user,
		Layout: db.LayoutOrDefault(ctx, s.layouts, user),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func requiredInt(request mcp.CallToolRequest, key string) (int, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("required parameter %q is missing", key)
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < 1 {
		return 0, fmt.Errorf("parameter %q must be a positive integer", key)
	}
	return int(f), nil
}

// parseValue decodes value as JSON, falling back to the raw string so
// callers may omit the quotes around text values.
func parseValue(value string) any {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return value
	}
	return v
}

// toSchemaValue converts decoded numbers to json.Number for validation.
func toSchemaValue(v any) any {
	if f, ok := v.(float64); ok {
		return json.Number(fmt.Sprint(f))
	}
	return v
}

func formatJSON(v any) string {
	b, err := encodeJSON(v)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}

func encodeJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
