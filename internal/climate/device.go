package climate

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-airzone/internal/airzone"
)

// Device adapts a current-generation API device to the standard
// climate entity.
type Device struct {
	device *airzone.CloudDevice
}

// NewDevice wraps a current-generation device.
func NewDevice(device *airzone.CloudDevice) *Device {
	return &Device{device: device}
}

// ID returns "device_" plus the vendor identifier.
func (d *Device) ID() string {
	return "device_" + d.device.ID
}

// Name prefixes the parent group name for display.
func (d *Device) Name() string {
	return fmt.Sprintf("%s - %s", d.device.Group().Name, d.device.Name)
}

// Kind returns KindDevice.
func (d *Device) Kind() Kind {
	return KindDevice
}

// Mode derives the standard mode from the device's vendor mode string
// and power flag.
func (d *Device) Mode() Mode {
	return ModeFromCloud(d.device.Mode, d.device.On)
}

// Modes lists the accepted modes.
func (d *Device) Modes() []Mode {
	return StandardModes()
}

// CurrentTemperature returns the measured temperature, if reported.
func (d *Device) CurrentTemperature() (float64, bool) {
	if d.device.LocalTemperature == nil {
		return 0, false
	}
	return *d.device.LocalTemperature, true
}

// TargetTemperature returns the setpoint, if reported.
func (d *Device) TargetTemperature() (float64, bool) {
	if d.device.Setpoint == nil {
		return 0, false
	}
	return *d.device.Setpoint, true
}

// TemperatureStep comes from the vendor object, defaulting to 0.5
// when unreported.
func (d *Device) TemperatureStep() float64 {
	if d.device.Step == nil {
		return defaultStep
	}
	return *d.device.Step
}

// MinTemp comes from the parent group, which aggregates the bounds
// its member devices report.
func (d *Device) MinTemp() float64 {
	return cloudGroupMinTemp(d.device.Group())
}

// MaxTemp comes from the parent group, which aggregates the bounds
// its member devices report.
func (d *Device) MaxTemp() float64 {
	return cloudGroupMaxTemp(d.device.Group())
}

// CurrentHumidity returns the measured humidity, if reported.
func (d *Device) CurrentHumidity() (float64, bool) {
	if d.device.Humidity == nil {
		return 0, false
	}
	return *d.device.Humidity, true
}

// SetMode changes the operating mode.
//
// OFF uses the dedicated turn-off. Any other mode first powers the
// device on if it was off, then issues the mode command.
func (d *Device) SetMode(ctx context.Context, mode Mode) error {
	if mode == ModeOff {
		return d.device.TurnOff(ctx)
	}

	command, ok := CloudModeCommand(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if !d.device.On {
		if err := d.device.TurnOn(ctx); err != nil {
			return err
		}
	}

	return d.device.SetMode(ctx, command)
}

// SetTemperature rounds to one decimal place and forwards the
// setpoint to the vendor.
func (d *Device) SetTemperature(ctx context.Context, temperature float64) error {
	return d.device.SetSetpoint(ctx, roundTemperature(temperature))
}

// TurnOn powers the device on.
func (d *Device) TurnOn(ctx context.Context) error {
	return d.device.TurnOn(ctx)
}

// TurnOff powers the device off.
func (d *Device) TurnOff(ctx context.Context) error {
	return d.device.TurnOff(ctx)
}

// Refresh delegates to the parent group, which re-reads every member
// device in one call.
func (d *Device) Refresh(ctx context.Context) error {
	return d.device.Group().Refresh(ctx)
}
