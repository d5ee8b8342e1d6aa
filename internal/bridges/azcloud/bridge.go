package azcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-airzone/internal/climate"
)

// Bridge operation constants.
const (
	// commandTimeout is the timeout for forwarding commands to the vendor.
	commandTimeout = 10 * time.Second

	// pollTimeout bounds one full poll cycle across all containers.
	pollTimeout = 60 * time.Second

	// defaultPollInterval is used when no poll interval is configured.
	defaultPollInterval = 30 * time.Second
)

// Bridge orchestrates bidirectional translation between the Airzone
// vendor cloud and MQTT. It handles:
//   - Receiving commands from Core via MQTT and forwarding them to the vendor
//   - Polling the vendor for state changes and publishing updates to MQTT
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use. Vendor objects
// carry no locking of their own, and Refresh rewrites them in place while
// command execution and state reads walk them, so every path that touches
// them (poll cycle, command handling, state publication) serialises on the
// vendor mutex.
type Bridge struct {
	bridgeID string
	mqtt     MQTTClient
	health   *HealthReporter
	recorder StateRecorder // Optional state history persistence
	metrics  MetricsWriter // Optional time-series metrics

	pollInterval time.Duration

	// Entity mappings (built from vendor enumeration)
	entities   map[string]climate.Entity
	containers []climate.Entity // entities whose Refresh covers their children
	entityMu   sync.RWMutex

	// Serialises access to the shared vendor objects behind the entity
	// adapters. Held across a poll cycle and across command execution.
	vendorMu sync.Mutex

	// State cache for change detection (entity ID -> marshalled state)
	stateCache   map[string]string
	stateCacheMu sync.Mutex

	// Counters for the API metrics endpoint
	commandsProcessed atomic.Uint64
	statesPublished   atomic.Uint64
	pollErrors        atomic.Uint64

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// Disconnect closes the connection gracefully.
	Disconnect(quiesce uint)
}

// Logger is the minimal structured logging interface the bridge needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// StateRecorder persists entity state snapshots.
// This interface is satisfied by *history.Repository (via adapter in main).
// It is optional - if nil, the bridge operates without history.
type StateRecorder interface {
	// RecordState stores one state snapshot for an entity.
	// source identifies what produced the snapshot ("poll" or "command").
	RecordState(ctx context.Context, entityID string, state map[string]any, source string) error
}

// MetricsWriter exports climate readings to a time-series store.
// It is optional - if nil, the bridge operates without metrics export.
type MetricsWriter interface {
	// WriteClimateState writes the mode tag plus numeric readings for
	// an entity.
	WriteClimateState(entityID, mode string, fields map[string]float64) error
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// BridgeID identifies this bridge in health and discovery messages.
	// Default: "airzone".
	BridgeID string

	// Version is the bridge software version for health messages.
	Version string

	// PollInterval is how often the vendor is polled for state.
	// Default: 30 seconds.
	PollInterval time.Duration

	// HealthInterval is how often health status is published.
	// Default: 30 seconds.
	HealthInterval time.Duration

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Logger is optional structured logger.
	Logger Logger

	// Recorder is optional state history persistence.
	// If nil, the bridge operates without history.
	Recorder StateRecorder

	// Metrics is optional time-series metrics export.
	// If nil, the bridge operates without metrics.
	Metrics MetricsWriter
}

// NewBridge creates a new bridge instance.
// Register entities with RegisterEntities, then call Start() to begin
// operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	bridgeID := opts.BridgeID
	if bridgeID == "" {
		bridgeID = Protocol
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	// Create bridge-level context for command cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		bridgeID:     bridgeID,
		mqtt:         opts.MQTTClient,
		recorder:     opts.Recorder, // May be nil (optional)
		metrics:      opts.Metrics,  // May be nil (optional)
		pollInterval: pollInterval,
		entities:     make(map[string]climate.Entity),
		stateCache:   make(map[string]string),
		done:         make(chan struct{}),
		ctx:          ctx,
		ctxCancel:    ctxCancel,
		logger:       opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  bridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// RegisterEntities replaces the bridge's entity set with the given
// entities. Containers (systems and groups) become the poll targets;
// refreshing a container updates all its children in place, so leaf
// entities never need their own refresh call.
func (b *Bridge) RegisterEntities(entities []climate.Entity) {
	b.entityMu.Lock()
	b.entities = make(map[string]climate.Entity, len(entities))
	b.containers = nil
	for _, e := range entities {
		b.entities[e.ID()] = e
		if e.Kind() == climate.KindSystem || e.Kind() == climate.KindGroup {
			b.containers = append(b.containers, e)
		}
	}
	count := len(b.entities)
	b.entityMu.Unlock()

	b.health.SetEntityCount(count)
	b.logInfo("entities registered", "count", count)
}

// Start begins bridge operation.
// This subscribes to the command topic, publishes entity discovery,
// and starts the poll loop and health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	// Publish starting status
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	// Subscribe to command topics
	commandTopic := CommandSubscribeTopic()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	// Announce enumerated entities and publish their initial state
	// before the first poll
	b.vendorMu.Lock()
	if err := b.publishDiscovery(); err != nil {
		b.logError("failed to publish discovery", err)
	}
	b.publishStates("poll")
	b.vendorMu.Unlock()

	// Start the poll loop
	b.wg.Add(1)
	go b.pollLoop()

	// Start health reporting
	b.health.Start(ctx)
	b.health.SetLastPollResult(nil)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.entityMu.RLock()
	entityCount := len(b.entities)
	b.entityMu.RUnlock()

	b.logInfo("bridge started",
		"bridge_id", b.bridgeID,
		"entities", entityCount,
		"poll_interval", b.pollInterval.String())

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Cancel bridge context to abort in-flight vendor requests
		b.ctxCancel()

		// Stop health reporting (publishes "stopping" status)
		b.health.Stop()

		// Wait for pending operations
		b.wg.Wait()

		b.logInfo("bridge stopped")
	})
}

// pollLoop refreshes vendor state at the configured interval.
func (b *Bridge) pollLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.PollOnce(b.ctx)
		}
	}
}

// PollOnce refreshes every container entity from the vendor and
// publishes any resulting state changes. Refresh updates vendor objects
// in place, so entity wrappers observe new values without re-enumeration.
// Safe to call concurrently with the poll loop and command handling;
// the cycle holds the vendor mutex so in-place rewrites never race with
// command execution or state reads.
func (b *Bridge) PollOnce(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	b.entityMu.RLock()
	containers := make([]climate.Entity, len(b.containers))
	copy(containers, b.containers)
	b.entityMu.RUnlock()

	b.vendorMu.Lock()
	defer b.vendorMu.Unlock()

	var pollErr error
	for _, c := range containers {
		if err := c.Refresh(pollCtx); err != nil {
			b.pollErrors.Add(1)
			b.logError("refresh failed", fmt.Errorf("entity %s: %w", c.ID(), err))
			pollErr = err
		}
	}
	b.health.SetLastPollResult(pollErr)

	b.publishStates("poll")
}

// publishStates publishes the state of every entity whose state changed
// since the last publish. source is recorded with each history snapshot.
func (b *Bridge) publishStates(source string) {
	b.entityMu.RLock()
	entities := make([]climate.Entity, 0, len(b.entities))
	for _, e := range b.entities {
		entities = append(entities, e)
	}
	b.entityMu.RUnlock()

	for _, e := range entities {
		b.publishEntityState(e, source)
	}
}

// publishEntityState publishes one entity's state if it changed.
func (b *Bridge) publishEntityState(e climate.Entity, source string) {
	state := climate.StateOf(e)

	msg := NewStateMessage(e.ID(), state)
	payload, err := json.Marshal(msg.State)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}

	// Command-sourced publishes skip change detection: the command may
	// confirm a state Core already holds, and the echo is the confirmation.
	if b.stateUnchanged(e.ID(), string(payload)) && source != "command" {
		return
	}

	full, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state message", err)
		return
	}

	if err := b.mqtt.Publish(StateTopic(e.ID()), full, 1, true); err != nil {
		b.logError("failed to publish state", err)
		return
	}
	b.statesPublished.Add(1)

	// Persist history (if configured)
	if b.recorder != nil {
		if err := b.recorder.RecordState(b.ctx, e.ID(), state, source); err != nil {
			b.logDebug("history record skipped",
				"entity", e.ID(),
				"reason", err.Error())
		}
	}

	// Export metrics (if configured)
	if b.metrics != nil {
		fields := make(map[string]float64)
		if v, ok := e.CurrentTemperature(); ok {
			fields["current_temperature"] = v
		}
		if v, ok := e.TargetTemperature(); ok {
			fields["target_temperature"] = v
		}
		if v, ok := e.CurrentHumidity(); ok {
			fields["current_humidity"] = v
		}
		if err := b.metrics.WriteClimateState(e.ID(), string(e.Mode()), fields); err != nil {
			b.logDebug("metrics write skipped",
				"entity", e.ID(),
				"reason", err.Error())
		}
	}
}

// stateUnchanged checks the new marshalled state against the cache.
// Returns true if unchanged (should skip publish); updates the cache
// otherwise.
func (b *Bridge) stateUnchanged(entityID, marshalled string) bool {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	if b.stateCache[entityID] == marshalled {
		return true
	}
	b.stateCache[entityID] = marshalled
	return false
}

// ClearStateCache removes all entries from the state cache, forcing the
// next publish cycle to re-emit every entity's state.
func (b *Bridge) ClearStateCache() {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	b.stateCache = make(map[string]string)
}

// EntityState reads an entity's current state under the vendor mutex,
// so callers outside the bridge (the REST API) never race an in-place
// refresh.
func (b *Bridge) EntityState(e climate.Entity) map[string]any {
	b.vendorMu.Lock()
	defer b.vendorMu.Unlock()
	return climate.StateOf(e)
}

// publishDiscovery announces the enumerated entities.
func (b *Bridge) publishDiscovery() error {
	b.entityMu.RLock()
	discovered := make([]DiscoveredEntity, 0, len(b.entities))
	for _, e := range b.entities {
		modes := make([]string, 0, len(e.Modes()))
		for _, m := range e.Modes() {
			modes = append(modes, string(m))
		}
		discovered = append(discovered, DiscoveredEntity{
			EntityID: e.ID(),
			Name:     e.Name(),
			Kind:     string(e.Kind()),
			Protocol: Protocol,
			Modes:    modes,
		})
	}
	b.entityMu.RUnlock()

	msg := DiscoveryMessage{
		Timestamp: time.Now().UTC(),
		Bridge:    b.bridgeID,
		Entities:  discovered,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.mqtt.Publish(DiscoveryTopic(), payload, 1, true)
}

// handleMQTTMessage routes incoming MQTT messages.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	b.handleCommand(payload)
	_ = topic // entity ID comes from the payload, not the topic
}

// handleCommand processes a command message from Core.
func (b *Bridge) handleCommand(payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"entity_id", cmd.EntityID,
		"command", cmd.Command)

	b.entityMu.RLock()
	entity, ok := b.entities[cmd.EntityID]
	b.entityMu.RUnlock()

	if !ok {
		b.publishAckError(cmd, ErrCodeNotConfigured,
			fmt.Sprintf("entity %s not configured", cmd.EntityID))
		return
	}

	// Vendor calls and the follow-up state read touch the shared vendor
	// objects, so they run under the same mutex as the poll cycle.
	b.vendorMu.Lock()
	defer b.vendorMu.Unlock()

	if err := b.executeCommand(cmd, entity); err != nil {
		b.logError("command execution failed", err)
		// Error ack already sent by executeCommand
		return
	}

	b.commandsProcessed.Add(1)
	b.publishAck(cmd, AckAccepted)

	// Adapters update local vendor state on success; publish it straight
	// away rather than waiting for the next poll.
	b.publishEntityState(entity, "command")
}

// executeCommand forwards a command to the vendor via the entity adapter.
func (b *Bridge) executeCommand(cmd CommandMessage, entity climate.Entity) error {
	// Derive timeout from bridge context so commands are cancelled on shutdown
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	switch cmd.Command {
	case "set_mode":
		return b.executeSetMode(ctx, cmd, entity)
	case "set_temperature":
		return b.executeSetTemperature(ctx, cmd, entity)
	case "on":
		return b.executePower(ctx, cmd, entity, true)
	case "off":
		return b.executePower(ctx, cmd, entity, false)
	default:
		b.publishAckError(cmd, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
		return fmt.Errorf("%w: %s", ErrInvalidCommand, cmd.Command)
	}
}

// executeSetMode handles a set_mode command.
func (b *Bridge) executeSetMode(ctx context.Context, cmd CommandMessage, entity climate.Entity) error {
	modeAny, ok := cmd.Parameters["mode"]
	if !ok {
		b.publishAckError(cmd, ErrCodeInvalidParameters, "missing 'mode' parameter")
		return fmt.Errorf("%w: missing mode", ErrInvalidParameters)
	}
	modeStr, ok := modeAny.(string)
	if !ok {
		b.publishAckError(cmd, ErrCodeInvalidParameters, "'mode' must be a string")
		return fmt.Errorf("%w: mode must be a string", ErrInvalidParameters)
	}

	mode := climate.Mode(modeStr)
	if !mode.Valid() {
		b.publishAckError(cmd, ErrCodeInvalidParameters,
			fmt.Sprintf("unknown mode: %s", modeStr))
		return fmt.Errorf("%w: unknown mode %s", ErrInvalidParameters, modeStr)
	}

	if err := entity.SetMode(ctx, mode); err != nil {
		b.publishAckError(cmd, ErrCodeVendorUnreachable,
			fmt.Sprintf("set_mode failed: %v", err))
		return err
	}
	return nil
}

// executeSetTemperature handles a set_temperature command.
func (b *Bridge) executeSetTemperature(ctx context.Context, cmd CommandMessage, entity climate.Entity) error {
	tempAny, ok := cmd.Parameters["temperature"]
	if !ok {
		b.publishAckError(cmd, ErrCodeInvalidParameters, "missing 'temperature' parameter")
		return fmt.Errorf("%w: missing temperature", ErrInvalidParameters)
	}
	temp, ok := tempAny.(float64)
	if !ok {
		b.publishAckError(cmd, ErrCodeInvalidParameters, "'temperature' must be a number")
		return fmt.Errorf("%w: temperature must be a number", ErrInvalidParameters)
	}

	if temp < entity.MinTemp() || temp > entity.MaxTemp() {
		b.publishAckError(cmd, ErrCodeInvalidParameters,
			fmt.Sprintf("'temperature' must be %.1f-%.1f, got %.2f",
				entity.MinTemp(), entity.MaxTemp(), temp))
		return fmt.Errorf("%w: temperature out of range: %.2f", ErrInvalidParameters, temp)
	}

	if err := entity.SetTemperature(ctx, temp); err != nil {
		if errors.Is(err, climate.ErrNoTargetTemperature) {
			b.publishAckError(cmd, ErrCodeUnsupported,
				"entity has no target temperature")
			return err
		}
		b.publishAckError(cmd, ErrCodeVendorUnreachable,
			fmt.Sprintf("set_temperature failed: %v", err))
		return err
	}
	return nil
}

// executePower handles on/off commands.
func (b *Bridge) executePower(ctx context.Context, cmd CommandMessage, entity climate.Entity, on bool) error {
	var err error
	if on {
		err = entity.TurnOn(ctx)
	} else {
		err = entity.TurnOff(ctx)
	}

	if err != nil {
		if errors.Is(err, climate.ErrUnsupportedCommand) {
			b.publishAckError(cmd, ErrCodeUnsupported,
				fmt.Sprintf("entity does not support %s", cmd.Command))
			return err
		}
		b.publishAckError(cmd, ErrCodeVendorUnreachable,
			fmt.Sprintf("%s failed: %v", cmd.Command, err))
		return err
	}
	return nil
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(cmd CommandMessage, status AckStatus) {
	ack := NewAckMessage(cmd, status)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	if err := b.mqtt.Publish(AckTopic(cmd.EntityID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishAckError publishes a failed command acknowledgment.
func (b *Bridge) publishAckError(cmd CommandMessage, code, message string) {
	ack := NewAckError(cmd, code, message)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack error", err)
		return
	}

	if err := b.mqtt.Publish(AckTopic(cmd.EntityID), payload, 1, false); err != nil {
		b.logError("failed to publish ack error", err)
	}

	b.logError("command failed",
		fmt.Errorf("code=%s message=%s", code, message))
}

// PublishNotification publishes an operator-facing notification.
func (b *Bridge) PublishNotification(severity, event, message string) error {
	msg := NewNotification(b.bridgeID, severity, event, message)
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.mqtt.Publish(NotificationTopic(), payload, 1, false)
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Connected         bool
	Status            string
	EntitiesManaged   int
	CommandsProcessed uint64
	StatesPublished   uint64
	PollErrors        uint64
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() BridgeMetrics {
	b.entityMu.RLock()
	entityCount := len(b.entities)
	b.entityMu.RUnlock()

	connected := b.mqtt.IsConnected()
	status := "disconnected"
	if connected {
		status = "healthy"
	}

	return BridgeMetrics{
		Connected:         connected,
		Status:            status,
		EntitiesManaged:   entityCount,
		CommandsProcessed: b.commandsProcessed.Load(),
		StatesPublished:   b.statesPublished.Load(),
		PollErrors:        b.pollErrors.Load(),
	}
}
