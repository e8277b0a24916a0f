package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound payloads at 1MB, in line with common broker
// limits. Availability change events are a few hundred bytes.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic at the given QoS and waits for the broker
// acknowledgement. The outbox dispatcher publishes change events at QoS 1,
// not retained; retained is used only for the system status topic.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.paho.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
