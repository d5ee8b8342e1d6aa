package climate

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-airzone/internal/airzone"
)

// Group adapts a current-generation API group to the standard climate
// entity.
//
// Groups are containers sharing one operating mode across member
// devices. Unlike legacy systems they carry their own power flag and
// dedicated on/off commands.
type Group struct {
	group *airzone.Group
}

// NewGroup wraps a current-generation group.
func NewGroup(group *airzone.Group) *Group {
	return &Group{group: group}
}

// ID returns "group_" plus the vendor identifier.
func (g *Group) ID() string {
	return "group_" + g.group.ID
}

// Name returns the group display name.
func (g *Group) Name() string {
	return g.group.Name
}

// Kind returns KindGroup.
func (g *Group) Kind() Kind {
	return KindGroup
}

// Mode derives the standard mode from the group's vendor mode string
// and power flag.
func (g *Group) Mode() Mode {
	return ModeFromCloud(g.group.Mode, g.group.On)
}

// Modes lists the accepted modes.
func (g *Group) Modes() []Mode {
	return StandardModes()
}

// CurrentTemperature is absent on containers.
func (g *Group) CurrentTemperature() (float64, bool) {
	return 0, false
}

// TargetTemperature is absent on containers.
func (g *Group) TargetTemperature() (float64, bool) {
	return 0, false
}

// TemperatureStep is zero on containers.
func (g *Group) TemperatureStep() float64 {
	return 0
}

// MinTemp returns the bound shared by the group's members.
func (g *Group) MinTemp() float64 {
	return cloudGroupMinTemp(g.group)
}

// MaxTemp returns the bound shared by the group's members.
func (g *Group) MaxTemp() float64 {
	return cloudGroupMaxTemp(g.group)
}

// CurrentHumidity is absent on containers.
func (g *Group) CurrentHumidity() (float64, bool) {
	return 0, false
}

// SetMode changes the shared operating mode.
//
// OFF uses the dedicated turn-off. Any other mode first powers the
// group on if it was off, then issues the mode command; the vendor
// fans it out to every member device.
func (g *Group) SetMode(ctx context.Context, mode Mode) error {
	if mode == ModeOff {
		return g.group.TurnOff(ctx)
	}

	command, ok := CloudModeCommand(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if !g.group.On {
		if err := g.group.TurnOn(ctx); err != nil {
			return err
		}
	}

	return g.group.SetMode(ctx, command)
}

// SetTemperature is rejected: containers have no setpoint.
func (g *Group) SetTemperature(_ context.Context, _ float64) error {
	return ErrNoTargetTemperature
}

// TurnOn powers on the group and every member device.
func (g *Group) TurnOn(ctx context.Context) error {
	return g.group.TurnOn(ctx)
}

// TurnOff powers off the group and every member device.
func (g *Group) TurnOff(ctx context.Context) error {
	return g.group.TurnOff(ctx)
}

// Refresh re-reads the group and all its member devices in one call.
func (g *Group) Refresh(ctx context.Context) error {
	return g.group.Refresh(ctx)
}

// cloudGroupMinTemp returns the highest lower bound any member device
// reports, so a setpoint the group accepts is valid on every member.
// Defaults when no member reports one.
func cloudGroupMinTemp(group *airzone.Group) float64 {
	bound := defaultMinTemp
	reported := false
	for _, d := range group.Devices {
		if d.MinTemp == nil {
			continue
		}
		if !reported || *d.MinTemp > bound {
			bound = *d.MinTemp
		}
		reported = true
	}
	return bound
}

// cloudGroupMaxTemp returns the lowest upper bound any member device
// reports. Defaults when no member reports one.
func cloudGroupMaxTemp(group *airzone.Group) float64 {
	bound := defaultMaxTemp
	reported := false
	for _, d := range group.Devices {
		if d.MaxTemp == nil {
			continue
		}
		if !reported || *d.MaxTemp < bound {
			bound = *d.MaxTemp
		}
		reported = true
	}
	return bound
}
