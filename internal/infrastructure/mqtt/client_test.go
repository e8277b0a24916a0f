package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// Unit tests that do not require a running broker. Broker-dependent
// tests live in integration_test.go behind the integration build tag.

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		qos     byte
		wantErr error
	}{
		{name: "empty topic", topic: "", qos: 1, wantErr: ErrInvalidTopic},
		{name: "invalid qos", topic: "availability/event/test", qos: 3, wantErr: ErrInvalidQoS},
		{name: "not connected", topic: "availability/event/test", qos: 1, wantErr: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, []byte("{}"), tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublish_OversizedPayload(t *testing.T) {
	client := &Client{}

	payload := make([]byte, maxPayloadSize+1)
	err := client.Publish("availability/event/test", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{subs: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("reservations/event/+", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() invalid qos error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("reservations/event/+", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("reservations/event/+", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	client := &Client{subs: make(map[string]subscription)}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("reservations/event/+"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	client := &Client{subs: make(map[string]subscription)}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestSystemStatusPayload(t *testing.T) {
	online := systemStatusPayload("availability-core", "online", "")
	if strings.Contains(online, "reason") {
		t.Errorf("online payload should omit reason, got %s", online)
	}

	offline := systemStatusPayload("availability-core", "offline", "graceful_shutdown")
	var decoded struct {
		Status   string `json:"status"`
		ClientID string `json:"client_id"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(offline), &decoded); err != nil {
		t.Fatalf("offline payload is not valid JSON: %v", err)
	}
	if decoded.Status != "offline" || decoded.Reason != "graceful_shutdown" {
		t.Errorf("offline payload = %+v", decoded)
	}
	if decoded.ClientID != "availability-core" {
		t.Errorf("client_id = %q, want availability-core", decoded.ClientID)
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "Event",
			builder: func() string {
				return Topics{}.Event("availability", "Availability.Changed")
			},
			expected: "availability/event/Availability.Changed",
		},
		{
			name: "Events reservations",
			builder: func() string {
				return Topics{}.Events("reservations")
			},
			expected: "reservations/event/+",
		},
		{
			name: "Events catalogue",
			builder: func() string {
				return Topics{}.Events("catalogue")
			},
			expected: "catalogue/event/+",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "availability/system/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}
