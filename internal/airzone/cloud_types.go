package airzone

import "context"

// Installation is a site on the current Airzone Cloud API. It owns one
// or more groups.
type Installation struct {
	ID   string `json:"installation_id"`
	Name string `json:"name"`

	// Groups is populated during enumeration.
	Groups []*Group `json:"-"`

	client *CloudClient
}

// Group shares one operating mode across its member devices on the
// current API. Commands issued to the group fan out to every member.
type Group struct {
	ID             string `json:"group_id"`
	InstallationID string `json:"installation_id"`
	Name           string `json:"name"`
	Mode           string `json:"mode"`
	On             bool   `json:"power"`

	Devices []*CloudDevice `json:"devices"`

	client *CloudClient
}

// CloudDevice is the smallest controllable climate unit on the current
// API. Temperature readings may be absent when the vendor has no data.
type CloudDevice struct {
	ID      string `json:"device_id"`
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
	Mode    string `json:"mode"`
	On      bool   `json:"power"`

	LocalTemperature *float64 `json:"local_temp"`
	Setpoint         *float64 `json:"setpoint"`
	Step             *float64 `json:"step"`
	MinTemp          *float64 `json:"min_temp"`
	MaxTemp          *float64 `json:"max_temp"`
	Humidity         *float64 `json:"humidity"`

	group  *Group
	client *CloudClient
}

// Group returns the parent group of this device.
func (d *CloudDevice) Group() *Group {
	return d.group
}

// TurnOn powers the device on.
func (d *CloudDevice) TurnOn(ctx context.Context) error {
	if err := d.client.putStatus(ctx, cloudDevicesPath+"/"+d.ID+"/status", map[string]any{"power": true}); err != nil {
		return err
	}
	d.On = true
	return nil
}

// TurnOff powers the device off.
func (d *CloudDevice) TurnOff(ctx context.Context) error {
	if err := d.client.putStatus(ctx, cloudDevicesPath+"/"+d.ID+"/status", map[string]any{"power": false}); err != nil {
		return err
	}
	d.On = false
	return nil
}

// SetMode sets the device operating mode.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mode: Vendor mode string (e.g. "heating", "ventilation")
//
// Returns:
//   - error: If the request fails
func (d *CloudDevice) SetMode(ctx context.Context, mode string) error {
	if err := d.client.putStatus(ctx, cloudDevicesPath+"/"+d.ID+"/status", map[string]any{"mode": mode}); err != nil {
		return err
	}
	d.Mode = mode
	return nil
}

// SetSetpoint sets the device setpoint in degrees Celsius.
// Callers are expected to round before forwarding; the value is sent
// to the vendor as-is.
func (d *CloudDevice) SetSetpoint(ctx context.Context, temperature float64) error {
	if err := d.client.putStatus(ctx, cloudDevicesPath+"/"+d.ID+"/status", map[string]any{"setpoint": temperature}); err != nil {
		return err
	}
	t := temperature
	d.Setpoint = &t
	return nil
}

// TurnOn powers on the group and every member device.
func (g *Group) TurnOn(ctx context.Context) error {
	if err := g.client.putStatus(ctx, cloudGroupsPath+"/"+g.ID+"/status", map[string]any{"power": true}); err != nil {
		return err
	}
	g.On = true
	for _, device := range g.Devices {
		device.On = true
	}
	return nil
}

// TurnOff powers off the group and every member device.
func (g *Group) TurnOff(ctx context.Context) error {
	if err := g.client.putStatus(ctx, cloudGroupsPath+"/"+g.ID+"/status", map[string]any{"power": false}); err != nil {
		return err
	}
	g.On = false
	for _, device := range g.Devices {
		device.On = false
	}
	return nil
}

// SetMode sets the operating mode for the group. The vendor applies it
// to every member device.
func (g *Group) SetMode(ctx context.Context, mode string) error {
	if err := g.client.putStatus(ctx, cloudGroupsPath+"/"+g.ID+"/status", map[string]any{"mode": mode}); err != nil {
		return err
	}
	g.Mode = mode
	for _, device := range g.Devices {
		device.Mode = mode
	}
	return nil
}

// Refresh re-reads the group and all its member devices in one call,
// updating the existing objects in place.
func (g *Group) Refresh(ctx context.Context) error {
	return g.client.refreshGroup(ctx, g)
}
