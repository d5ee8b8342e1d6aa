package climate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-airzone/internal/airzone"
)

// vendorCall records one mutating request made against a fake vendor.
type vendorCall struct {
	path string
	body map[string]any
}

// callLog collects mutating requests in arrival order so tests can
// assert command sequences (e.g. power-on before mode set).
type callLog struct {
	mu    sync.Mutex
	calls []vendorCall
}

func (l *callLog) record(t *testing.T, path string, r *http.Request) {
	t.Helper()

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decoding %s body: %v", path, err)
		return
	}
	l.mu.Lock()
	l.calls = append(l.calls, vendorCall{path: path, body: body})
	l.mu.Unlock()
}

func (l *callLog) all() []vendorCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]vendorCall, len(l.calls))
	copy(out, l.calls)
	return out
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

// newLegacyFixture spins up a fake legacy vendor with one device, one
// system and one zone, and returns the enumerated system with the
// request log. zoneOn controls the zone's initial power state.
func newLegacyFixture(t *testing.T, zoneOn bool) (*airzone.System, *callLog) {
	t.Helper()

	log := &callLog{}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/sign_in", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"user": map[string]any{"authentication_token": "tok"}})
	})
	mux.HandleFunc("/devices", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"devices": []map[string]any{
			{"id": "dev1", "name": "Home"},
		}})
	})
	mux.HandleFunc("/systems", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"systems": []map[string]any{
			{"id": "sys1", "device_id": "dev1", "name": "Ground Floor",
				"mode": "heat-both", "min_temp": 16.0, "max_temp": 28.0},
		}})
	})
	mux.HandleFunc("/zones", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"zones": []map[string]any{
			{"id": "z1", "system_id": "sys1", "name": "Living Room",
				"mode": "heat-both", "is_on": zoneOn,
				"current_temperature": 20.5, "target_temperature": 21.0,
				"current_humidity": 45.0},
		}})
	})
	mux.HandleFunc("/systems/sys1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			log.record(t, "/systems/sys1", r)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/zones/z1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			log.record(t, "/zones/z1", r)
		}
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := airzone.NewClient(context.Background(), server.URL, "u@example.com", "p", 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	return devices[0].Systems[0], log
}

// newCloudFixture spins up a fake current-generation vendor with one
// installation, one group and one device, and returns the enumerated
// group with the request log. deviceOn controls the device's (and the
// group's) initial power state.
func newCloudFixture(t *testing.T, deviceOn bool) (*airzone.Group, *callLog) {
	t.Helper()

	log := &callLog{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"token": "tok"})
	})
	mux.HandleFunc("/api/v1/installations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"installations": []map[string]any{
			{"installation_id": "i1", "name": "Home"},
		}})
	})
	mux.HandleFunc("/api/v1/installations/i1/groups", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"groups": []map[string]any{
			{"group_id": "g1", "name": "Upstairs", "mode": "heating", "power": deviceOn,
				"devices": []map[string]any{
					{"device_id": "d1", "name": "Office", "mode": "heating",
						"power": deviceOn, "local_temp": 19.5, "setpoint": 21.0,
						"humidity": 40.0},
				}},
		}})
	})
	mux.HandleFunc("/api/v1/groups/g1/status", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, "/api/v1/groups/g1/status", r)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/devices/d1/status", func(w http.ResponseWriter, r *http.Request) {
		log.record(t, "/api/v1/devices/d1/status", r)
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := airzone.NewCloudClient(context.Background(), server.URL, "u@example.com", "p", 5*time.Second)
	if err != nil {
		t.Fatalf("NewCloudClient() error = %v", err)
	}
	installations, err := client.Installations(context.Background())
	if err != nil {
		t.Fatalf("Installations() error = %v", err)
	}
	return installations[0].Groups[0], log
}

// newCloudBoundsFixture is newCloudFixture with two member devices that
// report their own temperature bounds, for tests of how the group
// aggregates them.
func newCloudBoundsFixture(t *testing.T) *airzone.Group {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"token": "tok"})
	})
	mux.HandleFunc("/api/v1/installations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"installations": []map[string]any{
			{"installation_id": "i1", "name": "Home"},
		}})
	})
	mux.HandleFunc("/api/v1/installations/i1/groups", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"groups": []map[string]any{
			{"group_id": "g1", "name": "Upstairs", "mode": "heating", "power": true,
				"devices": []map[string]any{
					{"device_id": "d1", "name": "Office", "mode": "heating",
						"power": true, "min_temp": 16.0, "max_temp": 28.0},
					{"device_id": "d2", "name": "Bedroom", "mode": "heating",
						"power": true, "min_temp": 18.0, "max_temp": 26.0},
				}},
		}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := airzone.NewCloudClient(context.Background(), server.URL, "u@example.com", "p", 5*time.Second)
	if err != nil {
		t.Fatalf("NewCloudClient() error = %v", err)
	}
	installations, err := client.Installations(context.Background())
	if err != nil {
		t.Fatalf("Installations() error = %v", err)
	}
	return installations[0].Groups[0]
}
