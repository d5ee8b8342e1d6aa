package airzone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Current API paths.
const (
	cloudLoginPath         = "/api/v1/auth/login"
	cloudInstallationsPath = "/api/v1/installations"
	cloudGroupsPath        = "/api/v1/groups"
	cloudDevicesPath       = "/api/v1/devices"
)

// CloudClient talks to the current Airzone Cloud API
// (m.airzonecloud.com).
//
// Construct with NewCloudClient, which performs the account login.
// The bearer token is carried on every subsequent request.
type CloudClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// cloudLoginResponse is the login payload envelope.
type cloudLoginResponse struct {
	Token string `json:"token"`
}

// NewCloudClient logs in to the current Airzone Cloud API and returns
// a ready-to-use client.
//
// Parameters:
//   - ctx: Context for timeout/cancellation of the login call
//   - endpoint: Base URL (e.g. "https://m.airzonecloud.com")
//   - username: Account email address
//   - password: Account password
//   - timeout: Per-request timeout applied to all calls
//
// Returns:
//   - *CloudClient: Authenticated client
//   - error: ErrAuthenticationFailed (wrapped) if the vendor rejects
//     the credentials, or a transport error
func NewCloudClient(ctx context.Context, endpoint, username, password string, timeout time.Duration) (*CloudClient, error) {
	c := &CloudClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}

	body, err := json.Marshal(map[string]string{
		"email":    username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+cloudLoginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: login: %w", ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: login returned status %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	var login cloudLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return nil, fmt.Errorf("%w: login: %w", ErrDecodeFailed, err)
	}
	if login.Token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", ErrAuthenticationFailed)
	}

	c.token = login.Token
	return c, nil
}

// Installations enumerates the full installation → group → device
// hierarchy and returns it with parent back-references wired up.
//
// The enumeration is a snapshot: callers construct their entities from
// it once and use Refresh on groups to re-read mutable fields.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - []*Installation: All installations, groups and devices attached
//   - error: If any enumeration request fails
func (c *CloudClient) Installations(ctx context.Context) ([]*Installation, error) {
	var instResp struct {
		Installations []*Installation `json:"installations"`
	}
	if err := c.getJSON(ctx, cloudInstallationsPath, &instResp); err != nil {
		return nil, fmt.Errorf("listing installations: %w", err)
	}

	for _, installation := range instResp.Installations {
		installation.client = c

		var groupResp struct {
			Groups []*Group `json:"groups"`
		}
		if err := c.getJSON(ctx, cloudInstallationsPath+"/"+installation.ID+"/groups", &groupResp); err != nil {
			return nil, fmt.Errorf("listing groups for installation %s: %w", installation.ID, err)
		}

		for _, group := range groupResp.Groups {
			group.client = c
			group.InstallationID = installation.ID
			for _, device := range group.Devices {
				device.client = c
				device.group = group
				device.GroupID = group.ID
			}
		}
		installation.Groups = groupResp.Groups
	}

	return instResp.Installations, nil
}

// refreshGroup re-reads one group and its member devices in a single
// call, updating the existing objects in place so entity references
// stay valid.
func (c *CloudClient) refreshGroup(ctx context.Context, group *Group) error {
	var groupResp struct {
		Group Group `json:"group"`
	}
	if err := c.getJSON(ctx, cloudGroupsPath+"/"+group.ID, &groupResp); err != nil {
		return fmt.Errorf("refreshing group %s: %w", group.ID, err)
	}

	group.Name = groupResp.Group.Name
	group.Mode = groupResp.Group.Mode
	group.On = groupResp.Group.On

	fresh := make(map[string]*CloudDevice, len(groupResp.Group.Devices))
	for _, device := range groupResp.Group.Devices {
		fresh[device.ID] = device
	}

	for _, device := range group.Devices {
		update, ok := fresh[device.ID]
		if !ok {
			continue // Device vanished from the group; keep last state
		}
		device.Name = update.Name
		device.Mode = update.Mode
		device.On = update.On
		device.LocalTemperature = update.LocalTemperature
		device.Setpoint = update.Setpoint
		device.Step = update.Step
		device.MinTemp = update.MinTemp
		device.MaxTemp = update.MaxTemp
		device.Humidity = update.Humidity
	}

	return nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *CloudClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

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

// putStatus performs an authenticated PUT with a JSON body against a
// status endpoint.
func (c *CloudClient) putStatus(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshalling body: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

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
