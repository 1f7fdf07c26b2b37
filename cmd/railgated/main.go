// Railgate Core - Gated Power Domain Controller
//
// railgated owns the gated power domains of a board: it sequences
// rail transitions through their register state machines, enforces
// parent-rail ordering, and exposes the domains over a REST API and
// MQTT for fleet tooling.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/railgate/railgate-core/migrations"

	"github.com/railgate/railgate-core/internal/api"
	"github.com/railgate/railgate-core/internal/audit"
	"github.com/railgate/railgate-core/internal/bridge"
	"github.com/railgate/railgate-core/internal/confwatch"
	"github.com/railgate/railgate-core/internal/infrastructure/config"
	"github.com/railgate/railgate-core/internal/infrastructure/database"
	"github.com/railgate/railgate-core/internal/infrastructure/influxdb"
	"github.com/railgate/railgate-core/internal/infrastructure/logging"
	"github.com/railgate/railgate-core/internal/infrastructure/mqtt"
	"github.com/railgate/railgate-core/internal/platform"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Railgate Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build the power domain platform
	registry, err := buildPlatform(cfg, log)
	if err != nil {
		return fmt.Errorf("building platform: %w", err)
	}

	// Transition history persistence
	history := platform.NewSQLiteHistoryRepository(db.DB)
	registry.AddObserver(platform.NewHistoryRecorder(history, log))

	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker and start the command bridge (optional)
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
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttBridge := bridge.New(registry, mqttClient, auditRepo, byte(cfg.MQTT.QoS))
		mqttBridge.SetLogger(log)
		if startErr := mqttBridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			mqttBridge.Stop()
		}()
		registry.AddObserver(mqttBridge)

		// Refresh retained state topics after every reconnect, the broker
		// may have served stale state while we were away.
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			mqttBridge.PublishAllStates()
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		registry.AddObserver(platform.ObserverFunc(func(event platform.Event) {
			influxClient.WriteTransitionMetric(event.Domain, string(event.Operation),
				string(event.Outcome), event.Duration, event.PollReads)
			if event.Outcome == platform.OutcomeOK {
				influxClient.WriteDomainState(event.Domain, event.Enabled, event.Mode)
			}
		}))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Runtime overrides file watcher (optional)
	if cfg.Overrides.Path != "" {
		watcher := confwatch.New(cfg.Overrides.Path, cfg.GetOverridesInterval(), log)
		watcher.Subscribe("log.level", func(_ string, value string, present bool) {
			if !present {
				value = cfg.Logging.Level
			}
			log.SetLevel(value)
			log.Info("log level override applied", "level", value)
		})
		watcher.SubscribePrefix("domain.", registry.HandleOverride)
		watcher.Load()
		watcher.Start()
		defer func() {
			log.Info("stopping overrides watcher")
			watcher.Stop()
		}()
		log.Info("overrides watcher started", "path", cfg.Overrides.Path)
	}

	// Start the REST API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Registry: registry,
		History:  history,
		Audit:    auditRepo,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Overrides watcher (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. MQTT bridge, then MQTT (if enabled)
	// 5. Database

	log.Info("Railgate Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RAILGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RAILGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildPlatform loads the platform description and constructs the
// domain registry over the configured register backend.
func buildPlatform(cfg *config.Config, log *logging.Logger) (*platform.Registry, error) {
	desc, err := platform.Load(cfg.Platform.File)
	if err != nil {
		return nil, err
	}
	log.Info("platform description loaded",
		"path", cfg.Platform.File,
		"board", desc.Board,
		"domains", len(desc.Domains),
	)

	if !cfg.Platform.Sim {
		// The mapped-hardware backend plugs in through the same provider
		// boundary; this build only ships the simulator.
		return nil, errors.New("platform: only the simulated register backend is available, set platform.sim")
	}
	sim := platform.NewSimulator()

	domains, err := platform.Build(desc, sim.Providers(), log)
	if err != nil {
		return nil, err
	}

	registry := platform.NewRegistry(domains)
	registry.SetLogger(log)
	log.Info("platform initialised", "backend", "sim", "domains", len(domains))
	return registry, nil
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
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

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
