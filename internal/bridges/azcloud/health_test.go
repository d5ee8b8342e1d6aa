package azcloud

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func decodeHealth(t *testing.T, payload []byte) HealthMessage {
	t.Helper()

	var msg HealthMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	return msg
}

func TestHealthReporter_PublishNow_Healthy(t *testing.T) {
	mqtt := NewMockMQTTClient()
	reporter := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "airzone",
		Version:   "1.0.0",
		Publisher: mqtt,
	})
	reporter.SetEntityCount(4)
	reporter.SetLastPollResult(nil)

	if err := reporter.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	published := mqtt.GetPublished()
	if len(published) != 1 {
		t.Fatalf("published %d messages, want 1", len(published))
	}
	if published[0].Topic != "graylogic/health/airzone" {
		t.Errorf("topic = %q, want graylogic/health/airzone", published[0].Topic)
	}
	if !published[0].Retained {
		t.Error("health messages should be retained")
	}

	msg := decodeHealth(t, published[0].Payload)
	if msg.Status != HealthHealthy {
		t.Errorf("status = %v, want healthy", msg.Status)
	}
	if msg.EntitiesManaged != 4 {
		t.Errorf("entities_managed = %d, want 4", msg.EntitiesManaged)
	}
	if msg.LastPollSuccess == nil {
		t.Error("last_poll_success should be set after a successful poll")
	}
}

func TestHealthReporter_DegradedOnPollFailure(t *testing.T) {
	mqtt := NewMockMQTTClient()
	reporter := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "airzone",
		Publisher: mqtt,
	})

	reporter.SetLastPollResult(errors.New("login expired"))
	if err := reporter.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msg := decodeHealth(t, mqtt.GetPublished()[0].Payload)
	if msg.Status != HealthDegraded {
		t.Errorf("status = %v, want degraded", msg.Status)
	}
	if msg.Reason == "" {
		t.Error("degraded status should carry a reason")
	}

	// Recovers on the next successful poll.
	mqtt.ClearPublished()
	reporter.SetLastPollResult(nil)
	if err := reporter.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
	msg = decodeHealth(t, mqtt.GetPublished()[0].Payload)
	if msg.Status != HealthHealthy {
		t.Errorf("status = %v after recovery, want healthy", msg.Status)
	}
}

func TestHealthReporter_DegradedWhenMQTTDisconnected(t *testing.T) {
	mqtt := NewMockMQTTClient()
	mqtt.connected = false
	reporter := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "airzone",
		Publisher: mqtt,
	})

	if err := reporter.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msg := decodeHealth(t, mqtt.GetPublished()[0].Payload)
	if msg.Status != HealthDegraded {
		t.Errorf("status = %v, want degraded when disconnected", msg.Status)
	}
}

func TestHealthReporter_StopPublishesStopping(t *testing.T) {
	mqtt := NewMockMQTTClient()
	reporter := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "airzone",
		Interval:  time.Hour,
		Publisher: mqtt,
	})

	reporter.Start(context.Background())
	reporter.Stop()
	reporter.Stop() // Safe to call twice

	published := mqtt.GetPublished()
	if len(published) == 0 {
		t.Fatal("no messages published")
	}
	msg := decodeHealth(t, published[len(published)-1].Payload)
	if msg.Status != HealthStopping {
		t.Errorf("final status = %v, want stopping", msg.Status)
	}
}

func TestHealthReporter_LWT(t *testing.T) {
	reporter := NewHealthReporter(HealthReporterConfig{BridgeID: "airzone"})

	if topic := reporter.GetLWTTopic(); topic != "graylogic/health/airzone" {
		t.Errorf("LWT topic = %q, want graylogic/health/airzone", topic)
	}

	payload, err := reporter.GetLWTPayload()
	if err != nil {
		t.Fatalf("GetLWTPayload() error = %v", err)
	}
	msg := decodeHealth(t, payload)
	if msg.Status != HealthOffline {
		t.Errorf("LWT status = %v, want offline", msg.Status)
	}
}
