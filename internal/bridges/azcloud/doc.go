// Package azcloud implements the Airzone cloud bridge for Gray Logic.
//
// This package connects an Airzone vendor cloud account to the MQTT bus.
// It polls the vendor for climate state and forwards climate commands
// received over MQTT back to the vendor.
//
// # Architecture
//
// The bridge operates as a translator between the MQTT bus and the
// vendor's HTTP API:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│   Gray Logic    │   MQTT   │  Airzone Bridge │   HTTPS
//	│      Core       │◄────────►│   (this pkg)    │◄────────► Vendor Cloud
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Poll the vendor cloud for climate state at a fixed interval
//   - Publish state changes to MQTT (retained, change-detected)
//   - Translate MQTT commands (set_mode, set_temperature, on, off)
//     into vendor requests via the climate entity adapters
//   - Acknowledge every command with accepted/failed status
//   - Announce enumerated entities on the discovery topic
//   - Publish health status and operator notifications
//
// # Polling
//
// Only container entities (systems and groups) are refreshed: a
// container refresh updates all of its child entities in place, so one
// vendor round-trip per container covers the whole hierarchy. Leaf
// state is then published from the shared objects.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use from multiple
// goroutines.
package azcloud
