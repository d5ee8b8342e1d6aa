package azcloud

import "errors"

// Domain errors for the Airzone bridge package.
var (
	// ErrNotConfigured is returned when a command targets an entity the
	// bridge does not manage.
	ErrNotConfigured = errors.New("azcloud: entity not configured")

	// ErrInvalidCommand is returned when a command name is not recognised.
	ErrInvalidCommand = errors.New("azcloud: invalid command")

	// ErrInvalidParameters is returned when command parameters are missing
	// or of the wrong type.
	ErrInvalidParameters = errors.New("azcloud: invalid parameters")
)
