// Package mqtt provides MQTT client connectivity for the Airzone bridge.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge uses MQTT as its message bus towards the home automation
// platform. The broker (Mosquitto) decouples the platform from the
// Airzone Cloud specifics.
//
//	Platform Core ↔ MQTT Broker ↔ Airzone Bridge ↔ Airzone Cloud
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all climate commands for this bridge
//	err = client.Subscribe(mqtt.Topics{}.ProtocolCommands("airzone"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish state
//	topic := mqtt.Topics{}.BridgeState("airzone", "zone_12345")
//	client.Publish(topic, []byte(`{"mode":"HEAT"}`), 1, true)
package mqtt
