package mqtt

import "fmt"

// Topic prefixes for the platform MQTT namespace.
//
// All bridge topics use the flat scheme: graylogic/{category}/{protocol}/{address}
const (
	// TopicPrefixBridge is the base for all bridge topics.
	// Flat scheme: graylogic/{category}/{protocol}/{address_or_id}
	TopicPrefixBridge = "graylogic"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for platform MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("airzone", "zone_12345")
//	// Returns: "graylogic/state/airzone/zone_12345"
type Topics struct{}

// =============================================================================
// Bridge Topics
// =============================================================================

// BridgeState returns the topic for entity state updates from a bridge.
//
// Example: graylogic/state/airzone/zone_12345
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic for commands to a bridge.
//
// Example: graylogic/command/airzone/zone_12345
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
//
// Example: graylogic/ack/airzone/zone_12345
func (Topics) BridgeAck(protocol, address string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/airzone
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// BridgeDiscovery returns the topic for entity discovery announcements.
//
// Example: graylogic/discovery/airzone
func (Topics) BridgeDiscovery(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefixBridge, protocol)
}

// BridgeNotification returns the topic for operator-facing notifications
// from a bridge, such as failed vendor sign-in.
//
// Example: graylogic/notification/airzone
func (Topics) BridgeNotification(protocol string) string {
	return fmt.Sprintf("%s/notification/%s", TopicPrefixBridge, protocol)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllBridgeStates returns a pattern matching all bridge state updates.
//
// Pattern: graylogic/state/+/+
func (Topics) AllBridgeStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefixBridge)
}

// AllBridgeCommands returns a pattern matching all commands to bridges.
//
// Pattern: graylogic/command/+/+
func (Topics) AllBridgeCommands() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefixBridge)
}

// AllBridgeAcks returns a pattern matching all bridge acknowledgements.
//
// Pattern: graylogic/ack/+/+
func (Topics) AllBridgeAcks() string {
	return fmt.Sprintf("%s/ack/+/+", TopicPrefixBridge)
}

// AllBridgeHealth returns a pattern matching all bridge health updates.
//
// Pattern: graylogic/health/+
func (Topics) AllBridgeHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefixBridge)
}

// ProtocolCommands returns a pattern matching all commands for one protocol.
//
// Pattern: graylogic/command/airzone/+
func (Topics) ProtocolCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefixBridge, protocol)
}

// AllTopics returns a pattern matching every platform topic.
// Use with caution - this receives ALL traffic.
//
// Pattern: graylogic/#
func (Topics) AllTopics() string {
	return "graylogic/#"
}
