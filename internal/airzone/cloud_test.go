package airzone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// cloudServer is a fake current-generation Airzone Cloud API.
type cloudServer struct {
	mu   sync.Mutex
	puts map[string][]map[string]any

	server *httptest.Server
}

func newCloudServer(t *testing.T) *cloudServer {
	t.Helper()

	cs := &cloudServer{puts: make(map[string][]map[string]any)}

	groupPayload := func() map[string]any {
		return map[string]any{
			"group_id": "g1", "installation_id": "i1", "name": "Upstairs",
			"mode": "heating", "power": true,
			"devices": []map[string]any{
				{"device_id": "d1", "name": "Office", "mode": "heating",
					"power": true, "local_temp": 19.5, "setpoint": 21.0,
					"step": 1.0, "min_temp": 15.0, "max_temp": 30.0},
				{"device_id": "d2", "name": "Studio", "mode": "heating",
					"power": false},
			},
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if creds["email"] != "user@example.com" || creds["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(t, w, map[string]any{"token": "cloud-token"})
	})
	mux.HandleFunc("/api/v1/installations", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, w, r)
		writeTestJSON(t, w, map[string]any{
			"installations": []map[string]any{
				{"installation_id": "i1", "name": "Home"},
			},
		})
	})
	mux.HandleFunc("/api/v1/installations/i1/groups", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, w, r)
		writeTestJSON(t, w, map[string]any{"groups": []map[string]any{groupPayload()}})
	})
	mux.HandleFunc("/api/v1/groups/g1", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, w, r)
		refreshed := groupPayload()
		refreshed["mode"] = "cooling"
		writeTestJSON(t, w, map[string]any{"group": refreshed})
	})
	mux.HandleFunc("/api/v1/groups/g1/status", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, w, r)
		cs.recordPut(t, "/api/v1/groups/g1/status", r)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/devices/d1/status", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, w, r)
		cs.recordPut(t, "/api/v1/devices/d1/status", r)
		w.WriteHeader(http.StatusOK)
	})

	cs.server = httptest.NewServer(mux)
	t.Cleanup(cs.server.Close)
	return cs
}

func (cs *cloudServer) recordPut(t *testing.T, path string, r *http.Request) {
	t.Helper()

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decoding PUT %s body: %v", path, err)
		return
	}
	cs.mu.Lock()
	cs.puts[path] = append(cs.puts[path], body)
	cs.mu.Unlock()
}

func (cs *cloudServer) lastPut(t *testing.T, path string) map[string]any {
	t.Helper()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	bodies := cs.puts[path]
	if len(bodies) == 0 {
		t.Fatalf("no PUT recorded for %s", path)
	}
	return bodies[len(bodies)-1]
}

func requireBearer(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()

	if r.Header.Get("Authorization") != "Bearer cloud-token" {
		t.Errorf("request to %s missing bearer token", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	}
}

func newTestCloudClient(t *testing.T, cs *cloudServer) *CloudClient {
	t.Helper()

	client, err := NewCloudClient(context.Background(), cs.server.URL, "user@example.com", "hunter2", 5*time.Second)
	if err != nil {
		t.Fatalf("NewCloudClient() error = %v", err)
	}
	return client
}

func TestNewCloudClient_BadCredentials(t *testing.T) {
	cs := newCloudServer(t)

	_, err := NewCloudClient(context.Background(), cs.server.URL, "user@example.com", "wrong", 5*time.Second)
	if err == nil {
		t.Fatal("NewCloudClient() expected error for bad credentials")
	}
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("NewCloudClient() error = %v, want ErrAuthenticationFailed", err)
	}
}

func TestInstallations_Hierarchy(t *testing.T) {
	cs := newCloudServer(t)
	client := newTestCloudClient(t, cs)

	installations, err := client.Installations(context.Background())
	if err != nil {
		t.Fatalf("Installations() error = %v", err)
	}

	if len(installations) != 1 {
		t.Fatalf("len(installations) = %d, want 1", len(installations))
	}
	groups := installations[0].Groups
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}

	group := groups[0]
	if len(group.Devices) != 2 {
		t.Fatalf("len(group.Devices) = %d, want 2", len(group.Devices))
	}
	device := group.Devices[0]
	if device.Group() != group {
		t.Error("device.Group() should point back at its group")
	}
	if device.Step == nil || *device.Step != 1.0 {
		t.Errorf("device.Step = %v, want 1.0", device.Step)
	}
	if group.Devices[1].LocalTemperature != nil {
		t.Error("device d2 should have no temperature reading")
	}
}

func TestCloudDevice_Commands(t *testing.T) {
	cs := newCloudServer(t)
	client := newTestCloudClient(t, cs)

	installations, err := client.Installations(context.Background())
	if err != nil {
		t.Fatalf("Installations() error = %v", err)
	}
	device := installations[0].Groups[0].Devices[0]

	if err := device.SetMode(context.Background(), "cooling"); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if cs.lastPut(t, "/api/v1/devices/d1/status")["mode"] != "cooling" {
		t.Error("SetMode() should send mode=cooling")
	}
	if device.Mode != "cooling" {
		t.Errorf("device.Mode = %q after SetMode, want %q", device.Mode, "cooling")
	}

	if err := device.SetSetpoint(context.Background(), 22.5); err != nil {
		t.Fatalf("SetSetpoint() error = %v", err)
	}
	if got := cs.lastPut(t, "/api/v1/devices/d1/status")["setpoint"]; got != 22.5 {
		t.Errorf("PUT body setpoint = %v, want 22.5", got)
	}

	if err := device.TurnOff(context.Background()); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	if device.On {
		t.Error("device.On should be false after TurnOff")
	}
}

func TestGroup_Commands_FanOutToMembers(t *testing.T) {
	cs := newCloudServer(t)
	client := newTestCloudClient(t, cs)

	installations, err := client.Installations(context.Background())
	if err != nil {
		t.Fatalf("Installations() error = %v", err)
	}
	group := installations[0].Groups[0]

	if err := group.SetMode(context.Background(), "dehumidify"); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	for _, device := range group.Devices {
		if device.Mode != "dehumidify" {
			t.Errorf("device %s mode = %q, want %q", device.ID, device.Mode, "dehumidify")
		}
	}

	if err := group.TurnOff(context.Background()); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	if cs.lastPut(t, "/api/v1/groups/g1/status")["power"] != false {
		t.Error("TurnOff() should send power=false")
	}
	for _, device := range group.Devices {
		if device.On {
			t.Errorf("device %s should be off after group TurnOff", device.ID)
		}
	}
}

func TestGroup_Refresh_UpdatesInPlace(t *testing.T) {
	cs := newCloudServer(t)
	client := newTestCloudClient(t, cs)

	installations, err := client.Installations(context.Background())
	if err != nil {
		t.Fatalf("Installations() error = %v", err)
	}
	group := installations[0].Groups[0]
	device := group.Devices[0]

	if err := group.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// The fake server reports cooling on re-read.
	if group.Mode != "cooling" {
		t.Errorf("group.Mode = %q after Refresh, want %q", group.Mode, "cooling")
	}
	if group.Devices[0] != device {
		t.Error("Refresh() must not replace device objects")
	}
	if device.Mode != "heating" {
		t.Errorf("device.Mode = %q after Refresh, want %q", device.Mode, "heating")
	}
}
