package airzone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Legacy API paths.
const (
	legacyLoginPath   = "/users/sign_in"
	legacyDevicesPath = "/devices"
	legacySystemsPath = "/systems"
	legacyZonesPath   = "/zones"
)

// Client talks to the first-generation Airzone Cloud API
// (www.airzonecloud.com).
//
// Construct with NewClient, which performs the account sign-in.
// The authentication token is carried on every subsequent request.
type Client struct {
	endpoint   string
	userEmail  string
	token      string
	httpClient *http.Client
}

// legacySignInResponse is the sign-in payload envelope.
type legacySignInResponse struct {
	User struct {
		AuthenticationToken string `json:"authentication_token"`
	} `json:"user"`
}

// NewClient signs in to the legacy Airzone Cloud API and returns a
// ready-to-use client.
//
// Parameters:
//   - ctx: Context for timeout/cancellation of the sign-in call
//   - endpoint: Base URL (e.g. "https://www.airzonecloud.com")
//   - username: Account email address
//   - password: Account password
//   - timeout: Per-request timeout applied to all calls
//
// Returns:
//   - *Client: Authenticated client
//   - error: ErrAuthenticationFailed (wrapped) if the vendor rejects
//     the credentials, or a transport error
func NewClient(ctx context.Context, endpoint, username, password string, timeout time.Duration) (*Client, error) {
	c := &Client{
		endpoint:   endpoint,
		userEmail:  username,
		httpClient: &http.Client{Timeout: timeout},
	}

	body, err := json.Marshal(map[string]string{
		"email":    username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+legacyLoginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sign-in: %w", ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: sign-in returned status %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	var signIn legacySignInResponse
	if err := json.NewDecoder(resp.Body).Decode(&signIn); err != nil {
		return nil, fmt.Errorf("%w: sign-in: %w", ErrDecodeFailed, err)
	}
	if signIn.User.AuthenticationToken == "" {
		return nil, fmt.Errorf("%w: sign-in response carried no token", ErrAuthenticationFailed)
	}

	c.token = signIn.User.AuthenticationToken
	return c, nil
}

// Devices enumerates the full device → system → zone hierarchy and
// returns it with parent back-references wired up.
//
// The enumeration is a snapshot: callers construct their entities from
// it once and use Refresh on systems to re-read mutable fields.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - []*Device: All devices on the account, systems and zones attached
//   - error: If any enumeration request fails
func (c *Client) Devices(ctx context.Context) ([]*Device, error) {
	var devResp struct {
		Devices []*Device `json:"devices"`
	}
	if err := c.getJSON(ctx, legacyDevicesPath, nil, &devResp); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	for _, device := range devResp.Devices {
		device.client = c

		systems, err := c.systems(ctx, device)
		if err != nil {
			return nil, err
		}
		device.Systems = systems
	}

	return devResp.Devices, nil
}

// systems fetches and wires up all systems for one device.
func (c *Client) systems(ctx context.Context, device *Device) ([]*System, error) {
	var sysResp struct {
		Systems []*System `json:"systems"`
	}
	query := url.Values{"device_id": {device.ID}}
	if err := c.getJSON(ctx, legacySystemsPath, query, &sysResp); err != nil {
		return nil, fmt.Errorf("listing systems for device %s: %w", device.ID, err)
	}

	for _, system := range sysResp.Systems {
		system.client = c
		system.device = device

		zones, err := c.zones(ctx, system)
		if err != nil {
			return nil, err
		}
		system.Zones = zones
	}

	return sysResp.Systems, nil
}

// zones fetches and wires up all zones for one system.
func (c *Client) zones(ctx context.Context, system *System) ([]*Zone, error) {
	var zoneResp struct {
		Zones []*Zone `json:"zones"`
	}
	query := url.Values{"system_id": {system.ID}}
	if err := c.getJSON(ctx, legacyZonesPath, query, &zoneResp); err != nil {
		return nil, fmt.Errorf("listing zones for system %s: %w", system.ID, err)
	}

	for _, zone := range zoneResp.Zones {
		zone.client = c
		zone.system = system
	}

	return zoneResp.Zones, nil
}

// refreshSystem re-reads one system and its zones, updating the
// existing objects in place so entity references stay valid.
func (c *Client) refreshSystem(ctx context.Context, system *System) error {
	var sysResp struct {
		System System `json:"system"`
	}
	if err := c.getJSON(ctx, legacySystemsPath+"/"+system.ID, nil, &sysResp); err != nil {
		return fmt.Errorf("refreshing system %s: %w", system.ID, err)
	}

	system.Name = sysResp.System.Name
	system.Mode = sysResp.System.Mode
	system.MinTemp = sysResp.System.MinTemp
	system.MaxTemp = sysResp.System.MaxTemp

	var zoneResp struct {
		Zones []*Zone `json:"zones"`
	}
	query := url.Values{"system_id": {system.ID}}
	if err := c.getJSON(ctx, legacyZonesPath, query, &zoneResp); err != nil {
		return fmt.Errorf("refreshing zones for system %s: %w", system.ID, err)
	}

	fresh := make(map[string]*Zone, len(zoneResp.Zones))
	for _, zone := range zoneResp.Zones {
		fresh[zone.ID] = zone
	}

	for _, zone := range system.Zones {
		update, ok := fresh[zone.ID]
		if !ok {
			continue // Zone vanished from the account; keep last state
		}
		zone.Name = update.Name
		zone.Mode = update.Mode
		zone.On = update.On
		zone.CurrentTemperature = update.CurrentTemperature
		zone.TargetTemperature = update.TargetTemperature
		zone.CurrentHumidity = update.CurrentHumidity
	}

	return nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("user_email", c.userEmail)
	query.Set("user_token", c.token)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrRequestFailed, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrDecodeFailed, path, err)
	}
	return nil
}

// putJSON performs an authenticated PUT with a JSON body.
func (c *Client) putJSON(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshalling body: %w", ErrRequestFailed, err)
	}

	query := url.Values{}
	query.Set("user_email", c.userEmail)
	query.Set("user_token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+path+"?"+query.Encode(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: PUT %s: %w", ErrRequestFailed, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: PUT %s returned %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}
	return nil
}
