package airzone

import "context"

// Device represents an Airzone webserver unit on the legacy API.
// It owns one or more systems.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	MAC    string `json:"mac,omitempty"`
	Status string `json:"status,omitempty"`

	// Systems is populated during enumeration.
	Systems []*System `json:"-"`

	client *Client
}

// System groups one or more zones under a shared operating mode
// on the legacy API. Mode commands are issued here, not on zones.
type System struct {
	ID       string  `json:"id"`
	DeviceID string  `json:"device_id"`
	Name     string  `json:"name"`
	Mode     string  `json:"mode"`
	MinTemp  float64 `json:"min_temp"`
	MaxTemp  float64 `json:"max_temp"`

	// Zones is populated during enumeration.
	Zones []*Zone `json:"-"`

	device *Device
	client *Client
}

// Zone is the smallest controllable climate unit on the legacy API.
// Temperature readings may be absent when the vendor has no data yet.
type Zone struct {
	ID       string `json:"id"`
	SystemID string `json:"system_id"`
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	On       bool   `json:"is_on"`

	CurrentTemperature *float64 `json:"current_temperature"`
	TargetTemperature  *float64 `json:"target_temperature"`
	CurrentHumidity    *float64 `json:"current_humidity"`

	system *System
	client *Client
}

// Device returns the webserver unit owning this system.
func (s *System) Device() *Device {
	return s.device
}

// SetMode sets the operating mode for the whole system.
// The vendor applies it to every zone the system contains.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mode: Vendor mode string (e.g. "heat-both", "stop")
//
// Returns:
//   - error: If the request fails
func (s *System) SetMode(ctx context.Context, mode string) error {
	if err := s.client.putJSON(ctx, legacySystemsPath+"/"+s.ID, map[string]any{"mode": mode}); err != nil {
		return err
	}
	s.Mode = mode
	return nil
}

// Refresh re-reads the system and all its zones from the vendor,
// updating the existing objects in place.
func (s *System) Refresh(ctx context.Context) error {
	return s.client.refreshSystem(ctx, s)
}

// System returns the parent system of this zone.
func (z *Zone) System() *System {
	return z.system
}

// TurnOn powers the zone on.
func (z *Zone) TurnOn(ctx context.Context) error {
	if err := z.client.putJSON(ctx, legacyZonesPath+"/"+z.ID, map[string]any{"power": true}); err != nil {
		return err
	}
	z.On = true
	return nil
}

// TurnOff powers the zone off.
func (z *Zone) TurnOff(ctx context.Context) error {
	if err := z.client.putJSON(ctx, legacyZonesPath+"/"+z.ID, map[string]any{"power": false}); err != nil {
		return err
	}
	z.On = false
	return nil
}

// SetTargetTemperature sets the zone setpoint in degrees Celsius.
// Callers are expected to round before forwarding; the value is sent
// to the vendor as-is.
func (z *Zone) SetTargetTemperature(ctx context.Context, temperature float64) error {
	if err := z.client.putJSON(ctx, legacyZonesPath+"/"+z.ID, map[string]any{"target_temperature": temperature}); err != nil {
		return err
	}
	t := temperature
	z.TargetTemperature = &t
	return nil
}
