package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/api"
	"github.com/urmzd/hbconsole/pkg/bridge"
	"github.com/urmzd/hbconsole/pkg/config"
	"github.com/urmzd/hbconsole/pkg/db"
	"github.com/urmzd/hbconsole/pkg/hap"
	"github.com/urmzd/hbconsole/pkg/setupcode"
	"golang.org/x/sync/errgroup"

	_ "github.com/urmzd/hbconsole/docs"
)

// @title           hbconsole API
// @version         1.0
// @description     Admin API for a Homebridge instance: accessories, layouts, bridge lifecycle and live sessions

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

const shutdownTimeout = 5 * time.Second

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	settingsFile := flag.String("settings", "", "Path to settings file (default: ~/.config/hbconsole/settings.yml)")
	configPath := flag.String("config", "", "Path to Homebridge config.json (default: ~/.homebridge/config.json)")
	storagePath := flag.String("storage", "", "Homebridge storage directory (default: directory of config.json)")
	dbPath := flag.String("db", "", "Path to layout database (default: <storage>/hbconsole.db)")
	host := flag.String("host", "", "Listen host (default: ui config, then :: or 0.0.0.0)")
	port := flag.Int("port", 0, "Listen port (default: ui config, then 8080)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	settings, err := config.LoadSettings(*settingsFile, map[string]any{
		"config-path":  *configPath,
		"storage-path": *storagePath,
		"db-path":      *dbPath,
		"host":         *host,
		"port":         *port,
		"log-level":    *logLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		log.Warn().Str("level", settings.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// Load Homebridge configuration
	hb, err := config.Load(settings.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load Homebridge config")
	}

	log.Info().
		Str("config", hb.Path()).
		Str("storage", settings.StoragePath).
		Str("bridge", hb.Bridge.Name).
		Msg("Configuration loaded")

	// Talk to the bridge when its port is known; fall back to NullClient
	var client accessory.Client
	pin, username := hb.Credentials()
	bridgePort, err := hb.BridgePort()
	if err != nil {
		log.Warn().Err(err).Msg("config.json does not define a port under bridge.port, accessory control is disabled")
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

	router := api.NewRouter(api.Dependencies{
		Client:      client,
		Layouts:     database.Layouts(),
		Validator:   schema.NewValidator(),
		Manager:     manager,
		SetupCoder:  encoder,
		Homebridge:  hb,
		LogSource:   hb.UI.LogSource(),
		StoragePath: settings.StoragePath,
		Reconciler: accessory.Options{
			PollInterval:   settings.PollInterval,
			SettleDelay:    settings.SettleDelay,
			RequestTimeout: settings.RequestTimeout,
		},
	})

	addr := config.ListenAddress(settings, hb.UI)
	srv := router.Server(addr)
	// Hijacked websocket connections outlive Shutdown; their sessions end
	// when this context is cancelled.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if hb.UI.SSL.Enabled() {
			log.Info().Str("address", addr).Msg("Starting API server with TLS")
			err = srv.ListenAndServeTLS(hb.UI.SSL.Cert, hb.UI.SSL.Key)
		} else {
			log.Info().Str("address", addr).Msg("Starting API server")
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server failed")
	}
}
