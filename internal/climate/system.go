package climate

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-airzone/internal/airzone"
)

// System adapts a legacy API system to the standard climate entity.
//
// Systems are containers: they carry the shared operating mode and
// temperature bounds for their zones but have no setpoint, readings,
// or independent power flag of their own.
type System struct {
	system *airzone.System
}

// NewSystem wraps a legacy system.
func NewSystem(system *airzone.System) *System {
	return &System{system: system}
}

// ID returns "system_" plus the vendor identifier.
func (s *System) ID() string {
	return "system_" + s.system.ID
}

// Name returns the system display name.
func (s *System) Name() string {
	return s.system.Name
}

// Kind returns KindSystem.
func (s *System) Kind() Kind {
	return KindSystem
}

// Mode derives the standard mode from the system's vendor mode
// string. Systems have no power flag; the mode string alone decides.
func (s *System) Mode() Mode {
	return ModeFromLegacy(s.system.Mode, true)
}

// Modes lists the accepted modes.
func (s *System) Modes() []Mode {
	return StandardModes()
}

// CurrentTemperature is absent on containers.
func (s *System) CurrentTemperature() (float64, bool) {
	return 0, false
}

// TargetTemperature is absent on containers.
func (s *System) TargetTemperature() (float64, bool) {
	return 0, false
}

// TemperatureStep is zero on containers.
func (s *System) TemperatureStep() float64 {
	return 0
}

// MinTemp returns the system's lower bound, shared by its zones.
func (s *System) MinTemp() float64 {
	return s.system.MinTemp
}

// MaxTemp returns the system's upper bound, shared by its zones.
func (s *System) MaxTemp() float64 {
	return s.system.MaxTemp
}

// CurrentHumidity is absent on containers.
func (s *System) CurrentHumidity() (float64, bool) {
	return 0, false
}

// SetMode sets the shared operating mode. OFF issues the vendor's
// "stop" command.
func (s *System) SetMode(ctx context.Context, mode Mode) error {
	command, ok := LegacyModeCommand(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return s.system.SetMode(ctx, command)
}

// SetTemperature is rejected: containers have no setpoint.
func (s *System) SetTemperature(_ context.Context, _ float64) error {
	return ErrNoTargetTemperature
}

// TurnOn is rejected: a system has no dedicated power command. Zones
// are powered individually.
func (s *System) TurnOn(_ context.Context) error {
	return ErrUnsupportedCommand
}

// TurnOff stops the whole system via the mode command.
func (s *System) TurnOff(ctx context.Context) error {
	return s.SetMode(ctx, ModeOff)
}

// Refresh re-reads the system and all its zones from the vendor.
func (s *System) Refresh(ctx context.Context) error {
	return s.system.Refresh(ctx)
}
