package azcloud

import (
	"encoding/json"
	"fmt"
	"time"
)

// MQTT message types for communication between Gray Logic Core and the
// Airzone bridge.

// Protocol is the protocol identifier used in topics and messages.
const Protocol = "airzone"

// CommandMessage is sent from Core to Bridge to execute a climate command.
// Topic: graylogic/command/airzone/{entity_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// EntityID is the climate entity identifier (e.g., "zone_12345").
	EntityID string `json:"entity_id"`

	// Command is the command name ("set_mode", "set_temperature", "on", "off").
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"mode": "HEAT"} for set_mode
	//   {"temperature": 21.5} for set_temperature
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	// Values: "api", "automation", "voice", "scene"
	Source string `json:"source"`

	// UserID is the user who triggered the command (if applicable).
	UserID string `json:"user_id,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was received and forwarded to the vendor.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the vendor did not respond within the timeout.
	AckTimeout AckStatus = "timeout"
)

// AckMessage is sent from Bridge to Core to acknowledge a command.
// Topic: graylogic/ack/airzone/{entity_id}
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgment was sent (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// EntityID is the climate entity identifier.
	EntityID string `json:"entity_id"`

	// Status indicates the acknowledgment status.
	Status AckStatus `json:"status"`

	// Protocol is the protocol identifier ("airzone").
	Protocol string `json:"protocol"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the error code (e.g., "VENDOR_UNREACHABLE", "INVALID_COMMAND").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeVendorUnreachable = "VENDOR_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeUnsupported       = "UNSUPPORTED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
)

// StateMessage is sent from Bridge to Core when a climate entity's state
// changes.
// Topic: graylogic/state/airzone/{entity_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// EntityID is the climate entity identifier.
	EntityID string `json:"entity_id"`

	// Timestamp is when the state was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// State contains the current climate state.
	// Example: {"mode": "HEAT", "current_temperature": 20.5,
	//           "target_temperature": 21.0, "min_temp": 16, "max_temp": 28}
	State map[string]any `json:"state"`

	// Protocol is the protocol identifier ("airzone").
	Protocol string `json:"protocol"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is sent from Bridge to Core to report operational status.
// Topic: graylogic/health/airzone
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier (e.g., "airzone").
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// EntitiesManaged is the number of climate entities being managed.
	EntitiesManaged int `json:"entities_managed"`

	// LastPollSuccess is when the vendor was last polled successfully.
	LastPollSuccess *time.Time `json:"last_poll_success,omitempty"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// DiscoveryMessage is sent from Bridge to Core to announce the climate
// entities enumerated from the vendor account.
// Topic: graylogic/discovery/airzone
type DiscoveryMessage struct {
	// Timestamp is when discovery was performed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Bridge is the bridge identifier.
	Bridge string `json:"bridge"`

	// Entities contains the discovered climate entities.
	Entities []DiscoveredEntity `json:"entities"`
}

// DiscoveredEntity represents a climate entity found during enumeration.
type DiscoveredEntity struct {
	// EntityID is the climate entity identifier.
	EntityID string `json:"entity_id"`

	// Name is the entity display name.
	Name string `json:"name"`

	// Kind is the entity kind ("zone", "system", "device", "group").
	Kind string `json:"kind"`

	// Protocol is the protocol identifier.
	Protocol string `json:"protocol"`

	// Modes lists the accepted operating modes.
	Modes []string `json:"modes"`
}

// NotificationMessage is sent from Bridge to Core for operator-facing
// events that need attention (e.g., vendor sign-in failure).
// Topic: graylogic/notification/airzone
type NotificationMessage struct {
	// Timestamp is when the event occurred (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Bridge is the bridge identifier.
	Bridge string `json:"bridge"`

	// Severity is "info", "warning" or "error".
	Severity string `json:"severity"`

	// Event is a machine-readable event name (e.g., "sign_in_failed").
	Event string `json:"event"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// JSON marshalling helpers

// MarshalJSON marshals a CommandMessage to JSON.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage from JSON.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		EntityID:  cmd.EntityID,
		Status:    status,
		Protocol:  Protocol,
	}
}

// NewAckError creates an acknowledgment with error details.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		EntityID:  cmd.EntityID,
		Status:    status,
		Protocol:  Protocol,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// NewStateMessage creates a state message for a climate entity.
func NewStateMessage(entityID string, state map[string]any) StateMessage {
	return StateMessage{
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
		State:     state,
		Protocol:  Protocol,
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, entityCount int, startTime time.Time, lastPoll *time.Time) HealthMessage {
	return HealthMessage{
		Bridge:          bridgeID,
		Timestamp:       time.Now().UTC(),
		Status:          status,
		Version:         version,
		UptimeSeconds:   int64(time.Since(startTime).Seconds()),
		EntitiesManaged: entityCount,
		LastPollSuccess: lastPoll,
	}
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
// This message is published by the broker if the bridge disconnects
// unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// NewNotification creates a notification message.
func NewNotification(bridgeID, severity, event, message string) NotificationMessage {
	return NotificationMessage{
		Timestamp: time.Now().UTC(),
		Bridge:    bridgeID,
		Severity:  severity,
		Event:     event,
		Message:   message,
	}
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all Gray Logic messages.
	TopicPrefix = "graylogic"
)

// CommandTopic returns the MQTT topic for commands to a specific entity.
// Example: graylogic/command/airzone/zone_12345
func CommandTopic(entityID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, Protocol, entityID)
}

// AckTopic returns the MQTT topic for command acknowledgments.
// Example: graylogic/ack/airzone/zone_12345
func AckTopic(entityID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, Protocol, entityID)
}

// StateTopic returns the MQTT topic for state updates.
// Example: graylogic/state/airzone/zone_12345
func StateTopic(entityID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, entityID)
}

// HealthTopic returns the MQTT topic for health status.
// Example: graylogic/health/airzone
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// DiscoveryTopic returns the MQTT topic for entity discovery.
// Example: graylogic/discovery/airzone
func DiscoveryTopic() string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefix, Protocol)
}

// NotificationTopic returns the MQTT topic for operator notifications.
// Example: graylogic/notification/airzone
func NotificationTopic() string {
	return fmt.Sprintf("%s/notification/%s", TopicPrefix, Protocol)
}

// CommandSubscribeTopic returns the MQTT subscription pattern for all
// commands addressed to this bridge.
// Example: graylogic/command/airzone/+
func CommandSubscribeTopic() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, Protocol)
}
