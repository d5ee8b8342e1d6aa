package climate

import "errors"

// Sentinel errors for climate entity operations.
var (
	// ErrUnsupportedCommand indicates the entity cannot execute the
	// requested command (e.g. turning a bare system container on).
	ErrUnsupportedCommand = errors.New("climate: command not supported by this entity")

	// ErrNoTargetTemperature indicates the entity is a container with
	// no setpoint of its own.
	ErrNoTargetTemperature = errors.New("climate: entity has no target temperature")

	// ErrUnknownMode indicates a mode outside the standard enumeration.
	ErrUnknownMode = errors.New("climate: unknown mode")
)
