// Availability Core - device availability tracking service.
//
// This is the main entry point for the availability service. It consumes
// reservation and catalogue lifecycle events from the MQTT bus, folds them
// into per-device availability records in SQLite, and publishes
// Availability.Changed events through a transactional outbox. A small REST
// API exposes synchronous reads and manual overrides.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lendware/availability-core/migrations"

	"github.com/lendware/availability-core/internal/api"
	"github.com/lendware/availability-core/internal/availability"
	"github.com/lendware/availability-core/internal/inbound"
	"github.com/lendware/availability-core/internal/infrastructure/config"
	"github.com/lendware/availability-core/internal/infrastructure/database"
	"github.com/lendware/availability-core/internal/infrastructure/influxdb"
	"github.com/lendware/availability-core/internal/infrastructure/logging"
	"github.com/lendware/availability-core/internal/infrastructure/mqtt"
	"github.com/lendware/availability-core/internal/outbox"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting availability service",
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the domain: stores, outbox publisher, reconciler
	availabilityStore := availability.NewSQLiteStore(db.DB)
	outboxStore := outbox.NewSQLiteStore(db.DB)
	storePublisher := outbox.NewStorePublisher(outboxStore)

	reconcilerOpts := availability.ReconcilerOptions{
		Store:     availabilityStore,
		Publisher: storePublisher,
		Logger:    log.With("component", "reconciler"),
	}
	if influxClient != nil {
		reconcilerOpts.History = statusHistory{client: influxClient}
	}
	reconciler := availability.NewReconciler(reconcilerOpts)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Subscribe inbound event adapters
	if err := subscribeAdapters(cfg, mqttClient, reconciler, log); err != nil {
		return fmt.Errorf("subscribing inbound adapters: %w", err)
	}

	// Start the outbox dispatcher draining to the bus
	qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2 by config
	busPublisher := outbox.NewBusPublisher(mqttClient, qos)
	dispatcherOpts := outbox.DispatcherOptions{
		Store:     outboxStore,
		Publisher: busPublisher,
		Interval:  cfg.GetDrainInterval(),
		BatchSize: cfg.Outbox.BatchSize,
		Logger:    log.With("component", "dispatcher"),
	}
	if influxClient != nil {
		dispatcherOpts.Metrics = drainMetrics{client: influxClient}
	}
	dispatcher := outbox.NewDispatcher(dispatcherOpts)
	go dispatcher.Run(ctx)
	log.Info("outbox dispatcher started",
		"interval", cfg.GetDrainInterval(),
		"batch_size", cfg.Outbox.BatchSize,
	)

	// Start the HTTP API
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log.With("component", "api"),
		Reconciler: reconciler,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. MQTT
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("availability service stopped")
	return nil
}

// subscribeAdapters wires the inbound event adapters onto the bus.
func subscribeAdapters(cfg *config.Config, client *mqtt.Client, reconciler *availability.Reconciler, log *logging.Logger) error {
	topics := mqtt.Topics{}
	qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2 by config

	reservations := inbound.NewReservationAdapter(reconciler, log.With("adapter", "reservations"))
	pattern := topics.Events(cfg.MQTT.Topics.Reservations)
	if err := client.Subscribe(pattern, qos, reservations.Handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", pattern, err)
	}
	log.Info("subscribed to reservation events", "pattern", pattern)

	catalogue := inbound.NewCatalogueAdapter(reconciler, log.With("adapter", "catalogue"))
	pattern = topics.Events(cfg.MQTT.Topics.Catalogue)
	if err := client.Subscribe(pattern, qos, catalogue.Handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", pattern, err)
	}
	log.Info("subscribed to catalogue events", "pattern", pattern)

	return nil
}

// getConfigPath returns the configuration file path.
// Uses AVAILABILITY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AVAILABILITY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// statusHistory adapts the InfluxDB client to the reconciler's
// HistoryRecorder interface.
type statusHistory struct {
	client *influxdb.Client
}

// RecordStatusChange implements availability.HistoryRecorder.
func (h statusHistory) RecordStatusChange(deviceID, previous, next string) {
	h.client.WriteStatusChange(deviceID, previous, next)
}

// drainMetrics adapts the InfluxDB client to the dispatcher's DrainRecorder
// interface.
type drainMetrics struct {
	client *influxdb.Client
}

// RecordOutboxDrain implements outbox.DrainRecorder.
func (m drainMetrics) RecordOutboxDrain(delivered, failed int) {
	m.client.WriteOutboxDrain(delivered, failed)
}
