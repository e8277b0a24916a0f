package mqtt

import (
	"fmt"
)

// Subscribe registers handler for topic and records the subscription so it
// is replayed after a reconnect. The inbound adapters subscribe with
// single-level wildcards ("reservations/event/+", "catalogue/event/+") so
// one handler sees every event type under a prefix.
//
// Handlers run on paho's goroutines and should return quickly.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	token := c.paho.Subscribe(topic, qos, c.wrapHandler(handler))
	ok := token.WaitTimeout(defaultPublishTimeout)
	if !ok || token.Error() != nil {
		// Failed subscriptions must not be replayed on reconnect.
		c.subMu.Lock()
		delete(c.subs, topic)
		c.subMu.Unlock()

		if !ok {
			return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
		}
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, token.Error())
	}

	return nil
}

// Unsubscribe drops the subscription for the exact topic pattern previously
// passed to Subscribe. Messages already in flight may still be delivered.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subs, topic)
	c.subMu.Unlock()

	token := c.paho.Unsubscribe(topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns how many topic patterns are currently tracked.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs)
}
