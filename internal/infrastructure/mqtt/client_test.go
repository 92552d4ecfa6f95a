package mqtt

import (
	"errors"
	"strings"
	"testing"
)

func TestTelemetryTopic(t *testing.T) {
	tests := []struct {
		role string
		want string
	}{
		{"force_micro", "tunnel/telemetry/force_micro"},
		{"fan_micro", "tunnel/telemetry/fan_micro"},
	}
	for _, tt := range tests {
		if got := TelemetryTopic(tt.role); got != tt.want {
			t.Errorf("TelemetryTopic(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestAlertsTopic(t *testing.T) {
	if got := AlertsTopic(); got != "tunnel/alerts" {
		t.Errorf("AlertsTopic() = %q", got)
	}
}

func TestSystemStatusTopic(t *testing.T) {
	if got := SystemStatusTopic(); got != "tunnel/system/status" {
		t.Errorf("SystemStatusTopic() = %q", got)
	}
}

func TestPublish_EmptyTopic(t *testing.T) {
	c := &Client{}
	if err := c.Publish("", map[string]int{"x": 1}); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c := &Client{}
	err := c.Publish(AlertsTopic(), map[string]int{"x": 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublish_OversizedPayload(t *testing.T) {
	c := &Client{}
	err := c.Publish(AlertsTopic(), strings.Repeat("a", maxPayloadSize+1))
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestStatusPayload(t *testing.T) {
	payload := statusPayload("tunnelcore", "online")
	for _, want := range []string{`"status":"online"`, `"client_id":"tunnelcore"`, `"timestamp":"`} {
		if !strings.Contains(payload, want) {
			t.Errorf("statusPayload missing %s: %s", want, payload)
		}
	}
}
