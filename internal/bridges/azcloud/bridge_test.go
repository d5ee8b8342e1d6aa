package azcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-airzone/internal/climate"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	handlers      map[string]func(topic string, payload []byte)
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// PublishedTo returns all messages published to topics with the given prefix.
func (m *MockMQTTClient) PublishedTo(prefix string) []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockPublish
	for _, p := range m.published {
		if strings.HasPrefix(p.Topic, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// fakeEntity implements climate.Entity for bridge tests.
type fakeEntity struct {
	mu sync.Mutex

	id   string
	name string
	kind climate.Kind
	mode climate.Mode

	currentTemp float64
	targetTemp  float64
	hasReadings bool

	calls   []string
	cmdErr  error
	refresh func() // applied on Refresh to simulate vendor-side change
}

func newFakeEntity(id string) *fakeEntity {
	return &fakeEntity{
		id:          id,
		name:        "Fake " + id,
		kind:        climate.KindZone,
		mode:        climate.ModeHeat,
		currentTemp: 20.0,
		targetTemp:  21.0,
		hasReadings: true,
	}
}

func (f *fakeEntity) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.cmdErr
}

func (f *fakeEntity) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeEntity) ID() string            { return f.id }
func (f *fakeEntity) Name() string          { return f.name }
func (f *fakeEntity) Kind() climate.Kind    { return f.kind }
func (f *fakeEntity) Modes() []climate.Mode { return climate.StandardModes() }

func (f *fakeEntity) Mode() climate.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeEntity) CurrentTemperature() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentTemp, f.hasReadings
}

func (f *fakeEntity) TargetTemperature() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetTemp, f.hasReadings
}

func (f *fakeEntity) TemperatureStep() float64         { return 0.5 }
func (f *fakeEntity) MinTemp() float64                 { return 15.0 }
func (f *fakeEntity) MaxTemp() float64                 { return 30.0 }
func (f *fakeEntity) CurrentHumidity() (float64, bool) { return 0, false }

func (f *fakeEntity) SetMode(_ context.Context, mode climate.Mode) error {
	return f.record("set_mode:" + string(mode))
}

func (f *fakeEntity) SetTemperature(_ context.Context, t float64) error {
	return f.record(fmt.Sprintf("set_temperature:%.1f", t))
}

func (f *fakeEntity) TurnOn(_ context.Context) error  { return f.record("on") }
func (f *fakeEntity) TurnOff(_ context.Context) error { return f.record("off") }

func (f *fakeEntity) Refresh(_ context.Context) error {
	if f.refresh != nil {
		f.refresh()
	}
	return f.record("refresh")
}

// mockRecorder implements StateRecorder for testing.
type mockRecorder struct {
	mu      sync.Mutex
	records []recordedState
}

type recordedState struct {
	EntityID string
	State    map[string]any
	Source   string
}

func (r *mockRecorder) RecordState(_ context.Context, entityID string, state map[string]any, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedState{EntityID: entityID, State: state, Source: source})
	return nil
}

func (r *mockRecorder) Records() []recordedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedState, len(r.records))
	copy(out, r.records)
	return out
}

// newTestBridge creates a bridge with the given entities registered.
func newTestBridge(t *testing.T, mqtt *MockMQTTClient, recorder StateRecorder, entities ...climate.Entity) *Bridge {
	t.Helper()

	b, err := NewBridge(BridgeOptions{
		Version:      "test",
		PollInterval: time.Hour, // tests drive polls explicitly
		MQTTClient:   mqtt,
		Recorder:     recorder,
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	b.RegisterEntities(entities)
	t.Cleanup(b.Stop)
	return b
}

// sendCommand marshals and injects a command message.
func sendCommand(t *testing.T, mqtt *MockMQTTClient, cmd CommandMessage) {
	t.Helper()

	payload, err := json.Marshal(&cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	mqtt.mu.Lock()
	handler, ok := mqtt.handlers[CommandSubscribeTopic()]
	mqtt.mu.Unlock()
	if !ok {
		t.Fatal("bridge did not subscribe to command topic")
	}
	handler(CommandTopic(cmd.EntityID), payload)
}

// lastAck decodes the most recent ack published for an entity.
func lastAck(t *testing.T, mqtt *MockMQTTClient, entityID string) AckMessage {
	t.Helper()

	acks := mqtt.PublishedTo(AckTopic(entityID))
	if len(acks) == 0 {
		t.Fatal("no ack published")
	}
	var ack AckMessage
	if err := json.Unmarshal(acks[len(acks)-1].Payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	return ack
}

// ============================================================
// Startup
// ============================================================

func TestBridge_Start_SubscribesAndAnnounces(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := newFakeEntity("zone_1")
	bridge := newTestBridge(t, mqtt, nil, entity)

	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	found := false
	mqtt.mu.Lock()
	for _, s := range mqtt.subscriptions {
		if s.Topic == "graylogic/command/airzone/+" {
			found = true
		}
	}
	mqtt.mu.Unlock()
	if !found {
		t.Error("bridge did not subscribe to graylogic/command/airzone/+")
	}

	discoveries := mqtt.PublishedTo(DiscoveryTopic())
	if len(discoveries) != 1 {
		t.Fatalf("published %d discovery messages, want 1", len(discoveries))
	}
	var msg DiscoveryMessage
	if err := json.Unmarshal(discoveries[0].Payload, &msg); err != nil {
		t.Fatalf("unmarshal discovery: %v", err)
	}
	if len(msg.Entities) != 1 || msg.Entities[0].EntityID != "zone_1" {
		t.Errorf("discovery entities = %+v, want zone_1", msg.Entities)
	}

	// Initial state is published before the first poll.
	states := mqtt.PublishedTo(StateTopic("zone_1"))
	if len(states) != 1 {
		t.Errorf("published %d initial states, want 1", len(states))
	}
}

// ============================================================
// Commands
// ============================================================

func TestBridge_HandleCommand_SetMode(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := newFakeEntity("zone_1")
	bridge := newTestBridge(t, mqtt, nil, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	mqtt.ClearPublished()

	sendCommand(t, mqtt, CommandMessage{
		ID:         "cmd-1",
		Timestamp:  time.Now().UTC(),
		EntityID:   "zone_1",
		Command:    "set_mode",
		Parameters: map[string]any{"mode": "COOL"},
		Source:     "api",
	})

	calls := entity.Calls()
	if len(calls) != 1 || calls[0] != "set_mode:COOL" {
		t.Errorf("entity calls = %v, want [set_mode:COOL]", calls)
	}

	ack := lastAck(t, mqtt, "zone_1")
	if ack.Status != AckAccepted || ack.CommandID != "cmd-1" {
		t.Errorf("ack = %+v, want accepted for cmd-1", ack)
	}

	// Successful commands publish the entity's state immediately.
	if states := mqtt.PublishedTo(StateTopic("zone_1")); len(states) != 1 {
		t.Errorf("published %d states after command, want 1", len(states))
	}
}

func TestBridge_CommandEchoesUnchangedState(t *testing.T) {
	mqtt := NewMockMQTTClient()
	recorder := &mockRecorder{}
	entity := newFakeEntity("zone_1")
	bridge := newTestBridge(t, mqtt, recorder, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	mqtt.ClearPublished()

	// The fake does not change its reported state on commands, so the
	// marshalled state matches the cached one. The publish must still
	// happen: Core treats it as confirmation of the command.
	sendCommand(t, mqtt, CommandMessage{
		ID:         "cmd-echo",
		EntityID:   "zone_1",
		Command:    "set_mode",
		Parameters: map[string]any{"mode": "HEAT"},
	})

	states := mqtt.PublishedTo(StateTopic("zone_1"))
	if len(states) != 1 {
		t.Fatalf("published %d states after command with unchanged state, want 1", len(states))
	}

	records := recorder.Records()
	if len(records) == 0 {
		t.Fatal("no history recorded for command-sourced publish")
	}
	last := records[len(records)-1]
	if last.EntityID != "zone_1" || last.Source != "command" {
		t.Errorf("history record = %+v, want zone_1 from command", last)
	}
}

func TestBridge_HandleCommand_SetTemperature(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := newFakeEntity("zone_1")
	bridge := newTestBridge(t, mqtt, nil, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sendCommand(t, mqtt, CommandMessage{
		ID:         "cmd-2",
		EntityID:   "zone_1",
		Command:    "set_temperature",
		Parameters: map[string]any{"temperature": 22.5},
	})

	calls := entity.Calls()
	if len(calls) != 1 || calls[0] != "set_temperature:22.5" {
		t.Errorf("entity calls = %v, want [set_temperature:22.5]", calls)
	}
	if ack := lastAck(t, mqtt, "zone_1"); ack.Status != AckAccepted {
		t.Errorf("ack status = %v, want accepted", ack.Status)
	}
}

func TestBridge_HandleCommand_TemperatureOutOfRange(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := newFakeEntity("zone_1") // bounds 15-30
	bridge := newTestBridge(t, mqtt, nil, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sendCommand(t, mqtt, CommandMessage{
		ID:         "cmd-3",
		EntityID:   "zone_1",
		Command:    "set_temperature",
		Parameters: map[string]any{"temperature": 40.0},
	})

	if calls := entity.Calls(); len(calls) != 0 {
		t.Errorf("entity calls = %v, want none for out-of-range temperature", calls)
	}
	ack := lastAck(t, mqtt, "zone_1")
	if ack.Status != AckFailed || ack.Error == nil || ack.Error.Code != ErrCodeInvalidParameters {
		t.Errorf("ack = %+v, want failed with INVALID_PARAMETERS", ack)
	}
}

func TestBridge_HandleCommand_UnknownEntity(t *testing.T) {
	mqtt := NewMockMQTTClient()
	bridge := newTestBridge(t, mqtt, nil, newFakeEntity("zone_1"))
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sendCommand(t, mqtt, CommandMessage{
		ID:       "cmd-4",
		EntityID: "zone_99",
		Command:  "on",
	})

	ack := lastAck(t, mqtt, "zone_99")
	if ack.Status != AckFailed || ack.Error == nil || ack.Error.Code != ErrCodeNotConfigured {
		t.Errorf("ack = %+v, want failed with NOT_CONFIGURED", ack)
	}
}

func TestBridge_HandleCommand_UnknownCommand(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := newFakeEntity("zone_1")
	bridge := newTestBridge(t, mqtt, nil, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sendCommand(t, mqtt, CommandMessage{
		ID:       "cmd-5",
		EntityID: "zone_1",
		Command:  "explode",
	})

	ack := lastAck(t, mqtt, "zone_1")
	if ack.Status != AckFailed || ack.Error == nil || ack.Error.Code != ErrCodeInvalidCommand {
		t.Errorf("ack = %+v, want failed with INVALID_COMMAND", ack)
	}
}

func TestBridge_HandleCommand_VendorFailure(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := newFakeEntity("zone_1")
	entity.cmdErr = errors.New("vendor timeout")
	bridge := newTestBridge(t, mqtt, nil, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sendCommand(t, mqtt, CommandMessage{
		ID:       "cmd-6",
		EntityID: "zone_1",
		Command:  "off",
	})

	ack := lastAck(t, mqtt, "zone_1")
	if ack.Status != AckFailed || ack.Error == nil || ack.Error.Code != ErrCodeVendorUnreachable {
		t.Errorf("ack = %+v, want failed with VENDOR_UNREACHABLE", ack)
	}
}

// ============================================================
// Polling and state publishing
// ============================================================

func TestBridge_PollOnce_RefreshesContainersOnly(t *testing.T) {
	mqtt := NewMockMQTTClient()
	zone := newFakeEntity("zone_1")
	system := newFakeEntity("system_1")
	system.kind = climate.KindSystem
	system.hasReadings = false

	bridge := newTestBridge(t, mqtt, nil, zone, system)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	bridge.PollOnce(context.Background())

	if calls := zone.Calls(); len(calls) != 0 {
		t.Errorf("zone calls = %v, want none (parent refresh covers it)", calls)
	}
	calls := system.Calls()
	if len(calls) != 1 || calls[0] != "refresh" {
		t.Errorf("system calls = %v, want [refresh]", calls)
	}
}

func TestBridge_StateChangeDetection(t *testing.T) {
	mqtt := NewMockMQTTClient()
	recorder := &mockRecorder{}
	system := newFakeEntity("system_1")
	system.kind = climate.KindSystem
	system.hasReadings = false

	bridge := newTestBridge(t, mqtt, recorder, system)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	mqtt.ClearPublished()

	// Unchanged state: nothing republished.
	bridge.PollOnce(context.Background())
	if states := mqtt.PublishedTo(StateTopic("system_1")); len(states) != 0 {
		t.Errorf("published %d states for unchanged entity, want 0", len(states))
	}

	// Vendor-side change appears on the next poll.
	system.refresh = func() {
		system.mu.Lock()
		system.mode = climate.ModeCool
		system.mu.Unlock()
	}
	bridge.PollOnce(context.Background())

	states := mqtt.PublishedTo(StateTopic("system_1"))
	if len(states) != 1 {
		t.Fatalf("published %d states after change, want 1", len(states))
	}
	var msg StateMessage
	if err := json.Unmarshal(states[0].Payload, &msg); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if msg.State["mode"] != "COOL" {
		t.Errorf("published mode = %v, want COOL", msg.State["mode"])
	}
	if !states[0].Retained {
		t.Error("state messages should be retained")
	}

	// History recorded with poll source.
	records := recorder.Records()
	if len(records) == 0 {
		t.Fatal("no history recorded")
	}
	last := records[len(records)-1]
	if last.EntityID != "system_1" || last.Source != "poll" {
		t.Errorf("history record = %+v, want system_1 from poll", last)
	}
}

func TestBridge_PollOnce_RecordsFailure(t *testing.T) {
	mqtt := NewMockMQTTClient()
	system := newFakeEntity("system_1")
	system.kind = climate.KindSystem
	system.cmdErr = errors.New("vendor down")

	bridge := newTestBridge(t, mqtt, nil, system)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	bridge.PollOnce(context.Background())

	metrics := bridge.GetMetrics()
	if metrics.PollErrors != 1 {
		t.Errorf("PollErrors = %d, want 1", metrics.PollErrors)
	}

	// Degraded status surfaces on the next health publish.
	mqtt.ClearPublished()
	if err := bridge.health.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
	healths := mqtt.PublishedTo(HealthTopic())
	if len(healths) != 1 {
		t.Fatalf("published %d health messages, want 1", len(healths))
	}
	var health HealthMessage
	if err := json.Unmarshal(healths[0].Payload, &health); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if health.Status != HealthDegraded {
		t.Errorf("health status = %v, want degraded", health.Status)
	}
}

// ============================================================
// Concurrency
// ============================================================

// unguardedEntity mirrors the real vendor adapters: plain fields with
// no locking of their own, rewritten in place by Refresh and mutated
// by commands. The bridge's vendor mutex is the only thing keeping
// these accesses apart.
type unguardedEntity struct {
	id          string
	kind        climate.Kind
	mode        climate.Mode
	currentTemp float64
}

func (u *unguardedEntity) ID() string            { return u.id }
func (u *unguardedEntity) Name() string          { return u.id }
func (u *unguardedEntity) Kind() climate.Kind    { return u.kind }
func (u *unguardedEntity) Mode() climate.Mode    { return u.mode }
func (u *unguardedEntity) Modes() []climate.Mode { return climate.StandardModes() }

func (u *unguardedEntity) CurrentTemperature() (float64, bool) { return u.currentTemp, true }
func (u *unguardedEntity) TargetTemperature() (float64, bool)  { return 21.0, true }
func (u *unguardedEntity) CurrentHumidity() (float64, bool)    { return 0, false }
func (u *unguardedEntity) TemperatureStep() float64            { return 0.5 }
func (u *unguardedEntity) MinTemp() float64                    { return 15.0 }
func (u *unguardedEntity) MaxTemp() float64                    { return 30.0 }

func (u *unguardedEntity) SetMode(_ context.Context, mode climate.Mode) error {
	u.mode = mode
	return nil
}

func (u *unguardedEntity) SetTemperature(_ context.Context, t float64) error {
	u.currentTemp = t
	return nil
}

func (u *unguardedEntity) TurnOn(_ context.Context) error  { u.mode = climate.ModeHeat; return nil }
func (u *unguardedEntity) TurnOff(_ context.Context) error { u.mode = climate.ModeOff; return nil }

func (u *unguardedEntity) Refresh(_ context.Context) error {
	u.mode = climate.ModeHeat
	u.currentTemp += 0.1
	return nil
}

// TestBridge_CommandsSerialisedWithPolling drives poll cycles and
// command handling from separate goroutines against an entity whose
// fields carry no locking, the way the vendor adapters do. Run with
// -race this fails if the bridge ever lets the two paths overlap.
func TestBridge_CommandsSerialisedWithPolling(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := &unguardedEntity{
		id:          "system_1",
		kind:        climate.KindSystem,
		mode:        climate.ModeHeat,
		currentTemp: 20.0,
	}
	bridge := newTestBridge(t, mqtt, nil, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload, err := json.Marshal(&CommandMessage{
		ID:         "cmd-race",
		EntityID:   "system_1",
		Command:    "set_mode",
		Parameters: map[string]any{"mode": "COOL"},
	})
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	mqtt.mu.Lock()
	handler, ok := mqtt.handlers[CommandSubscribeTopic()]
	mqtt.mu.Unlock()
	if !ok {
		t.Fatal("bridge did not subscribe to command topic")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bridge.PollOnce(context.Background())
		}()
		go func() {
			defer wg.Done()
			handler(CommandTopic("system_1"), payload)
		}()
	}
	wg.Wait()

	if ack := lastAck(t, mqtt, "system_1"); ack.Status != AckAccepted {
		t.Errorf("ack status = %v, want accepted", ack.Status)
	}
}

// ============================================================
// Metrics
// ============================================================

func TestBridge_GetMetrics(t *testing.T) {
	mqtt := NewMockMQTTClient()
	entity := newFakeEntity("zone_1")
	bridge := newTestBridge(t, mqtt, nil, entity)
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sendCommand(t, mqtt, CommandMessage{
		ID:       "cmd-7",
		EntityID: "zone_1",
		Command:  "on",
	})

	metrics := bridge.GetMetrics()
	if !metrics.Connected {
		t.Error("metrics should report connected")
	}
	if metrics.EntitiesManaged != 1 {
		t.Errorf("EntitiesManaged = %d, want 1", metrics.EntitiesManaged)
	}
	if metrics.CommandsProcessed != 1 {
		t.Errorf("CommandsProcessed = %d, want 1", metrics.CommandsProcessed)
	}
}
