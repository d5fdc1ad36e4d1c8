package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	// Health check
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check whether Homebridge answers on its HAP API"),
		),
		s.handleGetHealth,
	)

	// List accessories
	s.mcpServer.AddTool(
		mcp.NewTool("list_accessories",
			mcp.WithDescription("List every controllable accessory service with its current characteristic values"),
			mcp.WithString("type",
				mcp.Description("Only return services of this type, e.g. Lightbulb or Switch"),
			),
		),
		s.handleListAccessories,
	)

	// Set characteristic
	s.mcpServer.AddTool(
		mcp.NewTool("set_characteristic",
			mcp.WithDescription("Write a characteristic value, e.g. turn a light on. Use list_accessories to find the ids."),
			mcp.WithNumber("aid",
				mcp.Required(),
				mcp.Description("Accessory id"),
			),
			mcp.WithNumber("siid",
				mcp.Required(),
				mcp.Description("Service instance id (the service's iid)"),
			),
			mcp.WithNumber("iid",
				mcp.Required(),
				mcp.Description("Characteristic instance id"),
			),
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("New value as JSON: true, false, a number, or a quoted string"),
			),
		),
		s.handleSetCharacteristic,
	)

	// Setup code
	s.mcpServer.AddTool(
		mcp.NewTool("get_setup_code",
			mcp.WithDescription("Get the X-HM:// setup code used to pair the bridge with the Home app"),
		),
		s.handleGetSetupCode,
	)

	// Restart
	s.mcpServer.AddTool(
		mcp.NewTool("restart_bridge",
			mcp.WithDescription("Restart Homebridge using the configured restart command"),
		),
		s.handleRestartBridge,
	)

	// Layout
	s.mcpServer.AddTool(
		mcp.NewTool("get_accessory_layout",
			mcp.WithDescription("Get a UI user's room layout"),
			mcp.WithString("user",
				mcp.Required(),
				mcp.Description("UI username"),
			),
		),
		s.handleGetAccessoryLayout,
	)
}
