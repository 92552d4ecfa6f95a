// Tunnelcore - wind tunnel test rig coordination hub
//
// This is the main entry point for the tunnel service. It coordinates the
// rig microcontrollers, control clients, the shared session state, the
// anomaly detector and the background sample recorder behind one HTTP and
// WebSocket surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/aerolab/tunnelcore/migrations"

	"github.com/aerolab/tunnelcore/internal/api"
	"github.com/aerolab/tunnelcore/internal/auth"
	"github.com/aerolab/tunnelcore/internal/firmware"
	"github.com/aerolab/tunnelcore/internal/hub"
	"github.com/aerolab/tunnelcore/internal/infrastructure/config"
	"github.com/aerolab/tunnelcore/internal/infrastructure/database"
	"github.com/aerolab/tunnelcore/internal/infrastructure/influxdb"
	"github.com/aerolab/tunnelcore/internal/infrastructure/logging"
	"github.com/aerolab/tunnelcore/internal/infrastructure/mqtt"
	"github.com/aerolab/tunnelcore/internal/recorder"
	"github.com/aerolab/tunnelcore/internal/state"
	"github.com/aerolab/tunnelcore/internal/storage"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting tunnelcore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	users := storage.NewSQLiteUserRepository(db.DB)
	models := storage.NewSQLiteModelRepository(db.DB)
	tests := storage.NewSQLiteTestRepository(db.DB)

	store := state.New()
	registry := hub.NewRegistry()
	registry.SetLogger(log.With("component", "hub"))

	verifier := auth.NewVerifier(cfg.Security.JWT.Secret, users)
	negotiator := firmware.NewNegotiator(cfg.Firmware)

	// Connect to MQTT broker (optional relay)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)
	} else {
		log.Info("MQTT relay disabled")
	}

	// Connect to InfluxDB (optional telemetry mirror)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.New(cfg.InfluxDB, log.With("component", "influxdb"))
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			influxClient.Close()
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB mirror disabled")
	}

	// Start the background sample recorder
	rec := recorder.New(recorder.Config{
		SampleInterval: cfg.Recorder.SampleIntervalDuration(),
		IdleInterval:   cfg.Recorder.IdleIntervalDuration(),
		RecencyWindow:  cfg.Recorder.RecencyWindowDuration(),
	}, recorder.Deps{
		Stater:  store,
		Clients: registry,
		Samples: tests,
		Mirror:  mirrorOrNil(influxClient),
		Logger:  log.With("component", "recorder"),
	})
	if err := rec.Start(ctx); err != nil {
		return fmt.Errorf("starting recorder: %w", err)
	}
	log.Info("recorder started",
		"sample_interval", cfg.Recorder.SampleIntervalDuration(),
		"idle_interval", cfg.Recorder.IdleIntervalDuration(),
	)

	// Start the HTTP and WebSocket server
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log.With("component", "api"),
		Registry:      registry,
		Store:         store,
		Verifier:      verifier,
		Firmware:      negotiator,
		Models:        models,
		Tests:         tests,
		Recorder:      rec,
		TSDB:          influxClient,
		Relay:         mqttClient,
		RecencyWindow: cfg.Recorder.RecencyWindowDuration(),
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("tunnelcore stopped")
	return nil
}

// mirrorOrNil avoids handing the recorder a typed nil interface when the
// InfluxDB mirror is disabled.
func mirrorOrNil(c *influxdb.Client) recorder.Mirror {
	if c == nil {
		return nil
	}
	return c
}

// getConfigPath returns the configuration file path.
// Uses TUNNELCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TUNNELCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections that are in play.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
