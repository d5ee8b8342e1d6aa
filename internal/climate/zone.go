package climate

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-airzone/internal/airzone"
)

// zoneStep is the fixed setpoint granularity for legacy zones.
const zoneStep = 0.5

// Zone adapts a legacy API zone to the standard climate entity.
//
// Mode commands are issued to the parent system, never the zone
// itself; the vendor shares one operating mode across a system.
type Zone struct {
	zone *airzone.Zone
}

// NewZone wraps a legacy zone.
func NewZone(zone *airzone.Zone) *Zone {
	return &Zone{zone: zone}
}

// ID returns "zone_" plus the vendor identifier.
func (z *Zone) ID() string {
	return "zone_" + z.zone.ID
}

// Name prefixes the parent system name for display, matching how
// installers label multi-system sites.
func (z *Zone) Name() string {
	return fmt.Sprintf("%s - %s", z.zone.System().Name, z.zone.Name)
}

// Kind returns KindZone.
func (z *Zone) Kind() Kind {
	return KindZone
}

// Mode derives the standard mode from the zone's vendor mode string
// and power flag.
func (z *Zone) Mode() Mode {
	return ModeFromLegacy(z.zone.Mode, z.zone.On)
}

// Modes lists the accepted modes.
func (z *Zone) Modes() []Mode {
	return StandardModes()
}

// CurrentTemperature returns the measured temperature, if reported.
func (z *Zone) CurrentTemperature() (float64, bool) {
	if z.zone.CurrentTemperature == nil {
		return 0, false
	}
	return *z.zone.CurrentTemperature, true
}

// TargetTemperature returns the setpoint, if reported.
func (z *Zone) TargetTemperature() (float64, bool) {
	if z.zone.TargetTemperature == nil {
		return 0, false
	}
	return *z.zone.TargetTemperature, true
}

// TemperatureStep is fixed at 0.5 for legacy zones.
func (z *Zone) TemperatureStep() float64 {
	return zoneStep
}

// MinTemp always comes from the parent system.
func (z *Zone) MinTemp() float64 {
	return z.zone.System().MinTemp
}

// MaxTemp always comes from the parent system.
func (z *Zone) MaxTemp() float64 {
	return z.zone.System().MaxTemp
}

// CurrentHumidity returns the measured humidity, if reported.
func (z *Zone) CurrentHumidity() (float64, bool) {
	if z.zone.CurrentHumidity == nil {
		return 0, false
	}
	return *z.zone.CurrentHumidity, true
}

// SetMode changes the operating mode.
//
// OFF powers the zone off with no mode command. Any other mode first
// powers the zone on if it was off, then sets the mode on the parent
// system.
func (z *Zone) SetMode(ctx context.Context, mode Mode) error {
	if mode == ModeOff {
		return z.zone.TurnOff(ctx)
	}

	command, ok := LegacyModeCommand(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if !z.zone.On {
		if err := z.zone.TurnOn(ctx); err != nil {
			return err
		}
	}

	return z.zone.System().SetMode(ctx, command)
}

// SetTemperature rounds to one decimal place and forwards the
// setpoint to the vendor.
func (z *Zone) SetTemperature(ctx context.Context, temperature float64) error {
	return z.zone.SetTargetTemperature(ctx, roundTemperature(temperature))
}

// TurnOn powers the zone on.
func (z *Zone) TurnOn(ctx context.Context) error {
	return z.zone.TurnOn(ctx)
}

// TurnOff powers the zone off.
func (z *Zone) TurnOff(ctx context.Context) error {
	return z.zone.TurnOff(ctx)
}

// Refresh delegates to the parent system, which re-reads the whole
// system and every zone it contains in one pass.
func (z *Zone) Refresh(ctx context.Context) error {
	return z.zone.System().Refresh(ctx)
}
