// Package climate defines the standard climate-entity abstraction the
// bridge exposes over MQTT and REST.
//
// The vendor's two API generations report different object hierarchies
// (device → system → zone on the legacy API, installation → group →
// device on the current one) with different mode string sets. This
// package normalises both behind one Entity interface with a fixed
// Mode enumeration: OFF, HEAT, COOL, DRY, FAN_ONLY.
//
// Four adapters implement Entity:
//
//   - Zone wraps a legacy zone (leaf). Mode commands are forwarded to
//     its parent system; temperature bounds always come from the parent.
//   - System wraps a legacy system (container). It has no target
//     temperature; SetTemperature returns ErrNoTargetTemperature.
//   - Device wraps a current-generation device (leaf).
//   - Group wraps a current-generation group (container).
//
// Adapters are constructed once at discovery from a snapshot
// enumeration and never recreated; Refresh re-reads mutable fields
// from the same underlying vendor objects.
package climate
