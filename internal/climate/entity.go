package climate

import (
	"context"
	"math"
)

// Kind identifies which vendor object an entity wraps.
type Kind string

// Entity kinds.
const (
	KindZone   Kind = "zone"
	KindSystem Kind = "system"
	KindDevice Kind = "device"
	KindGroup  Kind = "group"
)

// Default bounds and step used when the vendor reports none.
const (
	defaultMinTemp = 15.0
	defaultMaxTemp = 30.0
	defaultStep    = 0.5
)

// Entity is the standard climate entity exposed to the platform.
//
// Readings that may be absent (the vendor has no data yet) return a
// false second value. Command methods take a context and return an
// error; failures wrap and propagate with no retries.
type Entity interface {
	// ID is the stable entity identifier (e.g. "zone_12345").
	ID() string

	// Name is the display name.
	Name() string

	// Kind reports which vendor object this entity wraps.
	Kind() Kind

	// Mode is the current standard operating mode.
	Mode() Mode

	// Modes lists the modes this entity accepts.
	Modes() []Mode

	// CurrentTemperature is the measured temperature in Celsius.
	CurrentTemperature() (float64, bool)

	// TargetTemperature is the setpoint in Celsius. Containers have none.
	TargetTemperature() (float64, bool)

	// TemperatureStep is the setpoint granularity. Zero for containers.
	TemperatureStep() float64

	// MinTemp is the lowest settable temperature.
	MinTemp() float64

	// MaxTemp is the highest settable temperature.
	MaxTemp() float64

	// CurrentHumidity is the measured relative humidity in percent.
	CurrentHumidity() (float64, bool)

	// SetMode changes the operating mode.
	SetMode(ctx context.Context, mode Mode) error

	// SetTemperature changes the setpoint. The value is rounded to one
	// decimal place before forwarding to the vendor.
	SetTemperature(ctx context.Context, temperature float64) error

	// TurnOn powers the unit on.
	TurnOn(ctx context.Context) error

	// TurnOff powers the unit off.
	TurnOff(ctx context.Context) error

	// Refresh re-reads mutable state from the vendor.
	Refresh(ctx context.Context) error
}

// roundTemperature rounds a requested setpoint to one decimal place.
func roundTemperature(temperature float64) float64 {
	return math.Round(temperature*10) / 10
}

// StateOf builds the state payload published for an entity. Absent
// readings are omitted rather than zeroed.
func StateOf(e Entity) map[string]any {
	state := map[string]any{
		"mode":     string(e.Mode()),
		"min_temp": e.MinTemp(),
		"max_temp": e.MaxTemp(),
	}

	if v, ok := e.CurrentTemperature(); ok {
		state["current_temperature"] = v
	}
	if v, ok := e.TargetTemperature(); ok {
		state["target_temperature"] = v
		state["temperature_step"] = e.TemperatureStep()
	}
	if v, ok := e.CurrentHumidity(); ok {
		state["current_humidity"] = v
	}

	return state
}
