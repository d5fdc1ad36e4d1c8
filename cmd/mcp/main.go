package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/bridge"
	"github.com/urmzd/hbconsole/pkg/config"
	"github.com/urmzd/hbconsole/pkg/db"
	"github.com/urmzd/hbconsole/pkg/hap"
	hbmcp "github.com/urmzd/hbconsole/pkg/mcp"
	"github.com/urmzd/hbconsole/pkg/setupcode"
)

func main() {
	// Logging must go to stderr: stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	settingsFile := flag.String("settings", "", "Path to settings file (default: ~/.config/hbconsole/settings.yml)")
	configPath := flag.String("config", "", "Path to Homebridge config.json (default: ~/.homebridge/config.json)")
	storagePath := flag.String("storage", "", "Homebridge storage directory (default: directory of config.json)")
	dbPath := flag.String("db", "", "Path to layout database (default: <storage>/hbconsole.db)")
	flag.Parse()

	settings, err := config.LoadSettings(*settingsFile, map[string]any{
		"config-path":  *configPath,
		"storage-path": *storagePath,
		"db-path":      *dbPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	if level, err := zerolog.ParseLevel(settings.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()

	// Open database
	database, err := db.Open(settings.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Str("path", database.Path()).Msg("Database opened")

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	hb, err := config.Load(settings.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load Homebridge config")
	}

	// Use NullClient until bridge.port is configured
	var client accessory.Client
	pin, username := hb.Credentials()
	if bridgePort, err := hb.BridgePort(); err != nil {
		log.Warn().Err(err).Msg("config.json does not define a port under bridge.port, accessory tools are disabled")
		client = accessory.NewNullClient()
	} else {
		client = hap.New(hap.Config{
			Port:     bridgePort,
			Pin:      pin,
			Name:     hb.Bridge.Name,
			Username: username,
		}, &http.Client{Timeout: settings.RequestTimeout})
	}

	encoder := setupcode.NewEncoder(settings.StoragePath, username)
	manager := bridge.NewManager(hb, settings.StoragePath, encoder)

	// Create and start MCP server
	mcpServer := hbmcp.NewServer(client, schema.NewValidator(), database.Layouts(), manager, encoder, settings.RequestTimeout)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
