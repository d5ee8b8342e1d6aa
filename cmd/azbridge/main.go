// Gray Logic Airzone Bridge
//
// This is the main entry point for the Airzone Cloud bridge. The bridge
// signs in to the vendor cloud, enumerates the account's climate
// hierarchy, and exposes every zone, system, device and group as a
// standard climate entity over MQTT and a local REST API.
//
// Supported vendor API generations:
//   - v1: legacy zone/system API (www.airzonecloud.com)
//   - v2: current device/group API (m.airzonecloud.com)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-airzone/migrations"

	"github.com/nerrad567/gray-logic-airzone/internal/airzone"
	"github.com/nerrad567/gray-logic-airzone/internal/api"
	"github.com/nerrad567/gray-logic-airzone/internal/bridges/azcloud"
	"github.com/nerrad567/gray-logic-airzone/internal/climate"
	"github.com/nerrad567/gray-logic-airzone/internal/history"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/mqtt"
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
	log.Info("starting Airzone bridge",
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

	// State history repository
	historyRepo := history.NewRepository(db.DB)

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

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

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

	// Sign in to the vendor cloud and enumerate climate entities.
	// A failed sign-in is fatal: there is nothing to bridge without it.
	entities, err := buildEntities(ctx, cfg, log)
	if err != nil {
		publishSignInFailure(mqttClient, cfg.Bridge.ID, err)
		return fmt.Errorf("enumerating Airzone entities: %w", err)
	}
	log.Info("Airzone entities enumerated", "count", len(entities))

	// Start the bridge
	bridge, err := startBridge(ctx, cfg, entities, mqttClient, historyRepo, influxClient, log)
	if err != nil {
		return fmt.Errorf("starting Airzone bridge: %w", err)
	}
	defer func() {
		log.Info("stopping Airzone bridge")
		bridge.Stop()
	}()

	// Start the REST API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Logger:   log,
		Entities: entities,
		MQTT:     mqttClient,
		Bridge:   bridge,
		States:   bridge,
		History:  historyRepo,
		DB:       db,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"tls", cfg.API.TLS.Enabled,
	)

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
	// 2. Airzone bridge
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("Airzone bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AZBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AZBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildEntities signs in to the configured vendor API generation(s) and
// builds climate entities for everything on the account.
//
// Both generations can run side by side when airzone.api is "both";
// entity IDs are namespaced by kind so the sets never collide.
//
// Parameters:
//   - ctx: Context for sign-in and enumeration requests
//   - cfg: Application configuration
//   - log: Logger instance
//
// Returns:
//   - []climate.Entity: All enumerated entities, containers after their children
//   - error: If sign-in or enumeration fails
func buildEntities(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]climate.Entity, error) {
	var entities []climate.Entity
	timeout := cfg.GetAirzoneTimeout()

	if cfg.Airzone.API == "v1" || cfg.Airzone.API == "both" {
		client, err := airzone.NewClient(ctx, cfg.Airzone.Endpoint, cfg.Airzone.Username, cfg.Airzone.Password, timeout)
		if err != nil {
			return nil, fmt.Errorf("v1 sign-in: %w", err)
		}
		log.Info("signed in to legacy Airzone API", "endpoint", cfg.Airzone.Endpoint)

		devices, err := client.Devices(ctx)
		if err != nil {
			return nil, fmt.Errorf("v1 enumeration: %w", err)
		}
		for _, device := range devices {
			for _, system := range device.Systems {
				for _, zone := range system.Zones {
					entities = append(entities, climate.NewZone(zone))
				}
				entities = append(entities, climate.NewSystem(system))
			}
		}
	}

	if cfg.Airzone.API == "v2" || cfg.Airzone.API == "both" {
		client, err := airzone.NewCloudClient(ctx, cfg.Airzone.CloudEndpoint, cfg.Airzone.Username, cfg.Airzone.Password, timeout)
		if err != nil {
			return nil, fmt.Errorf("v2 sign-in: %w", err)
		}
		log.Info("signed in to Airzone Cloud API", "endpoint", cfg.Airzone.CloudEndpoint)

		installations, err := client.Installations(ctx)
		if err != nil {
			return nil, fmt.Errorf("v2 enumeration: %w", err)
		}
		for _, installation := range installations {
			for _, group := range installation.Groups {
				for _, device := range group.Devices {
					entities = append(entities, climate.NewDevice(device))
				}
				entities = append(entities, climate.NewGroup(group))
			}
		}
	}

	return entities, nil
}

// publishSignInFailure announces a failed vendor sign-in on the
// notification topic so operators see it without log access.
// The password never appears in the message.
func publishSignInFailure(mqttClient *mqtt.Client, bridgeID string, signInErr error) {
	note := azcloud.NewNotification(bridgeID, "error", "sign_in_failed", signInErr.Error())
	payload, err := json.Marshal(&note)
	if err != nil {
		return
	}
	//nolint:errcheck // Best-effort: the sign-in error is already being returned
	mqttClient.Publish(azcloud.NotificationTopic(), payload, 1, false)
}

// startBridge initialises and starts the Airzone MQTT bridge.
//
// Parameters:
//   - ctx: Context for startup/cancellation
//   - cfg: Application configuration
//   - entities: Enumerated climate entities to manage
//   - mqttClient: MQTT client for publishing/subscribing
//   - historyRepo: State history repository
//   - influxClient: InfluxDB client (may be nil if disabled)
//   - log: Logger instance
//
// Returns:
//   - *azcloud.Bridge: Running bridge
//   - error: If the bridge fails to start
func startBridge(
	ctx context.Context,
	cfg *config.Config,
	entities []climate.Entity,
	mqttClient *mqtt.Client,
	historyRepo *history.Repository,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*azcloud.Bridge, error) {
	opts := azcloud.BridgeOptions{
		BridgeID:       cfg.Bridge.ID,
		Version:        version,
		PollInterval:   cfg.GetPollInterval(),
		HealthInterval: cfg.GetHealthInterval(),
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		Logger:         log,
		Recorder:       historyRepo,
	}
	if influxClient != nil {
		opts.Metrics = &influxMetricsAdapter{client: influxClient}
	}

	bridge, err := azcloud.NewBridge(opts)
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	bridge.RegisterEntities(entities)

	if err := bridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting bridge: %w", err)
	}
	log.Info("Airzone bridge started",
		"entities", len(entities),
		"poll_interval", cfg.GetPollInterval(),
	)

	return bridge, nil
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
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Vendor cloud health is verified during enumeration - sign-in and
	// the first hierarchy fetch complete before the bridge starts.

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The primary difference is the Subscribe handler
// signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements azcloud.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements azcloud.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements azcloud.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// Disconnect implements azcloud.MQTTClient.
// Note: The MQTT client lifecycle is managed by run()'s defer chain,
// so this is a no-op.
func (a *mqttBridgeAdapter) Disconnect(_ uint) {
	// No-op: MQTT client lifecycle is managed by the defer chain
}

// influxMetricsAdapter adapts the InfluxDB client to the bridge's
// MetricsWriter interface. Writes are asynchronous and batched inside
// the client, so there is no error to surface per point.
type influxMetricsAdapter struct {
	client *influxdb.Client
}

// WriteClimateState implements azcloud.MetricsWriter.
func (a *influxMetricsAdapter) WriteClimateState(entityID, mode string, fields map[string]float64) error {
	converted := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		converted[k] = v
	}
	a.client.WriteClimateState(entityID, mode, converted)
	return nil
}
