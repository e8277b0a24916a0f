package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lendware/availability-core/internal/infrastructure/config"
)

// Client is the service's connection to the event bus. It keeps the set of
// active subscriptions so they can be replayed after a reconnect, and it
// publishes a retained online/offline status on the system topic (the LWT
// covers the crash case). Safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	// mu guards connected, the connection callbacks and the logger.
	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	// subs holds subscriptions to replay on reconnect, keyed by topic.
	subMu sync.RWMutex
	subs  map[string]subscription
}

// Logger is the subset of logging.Logger the client needs for handler
// errors and recovered panics.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives each inbound message. Paho invokes handlers on
// its own goroutines; a returned error is logged, it does not affect
// acknowledgement of the message.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker, registers the LWT on the system status topic
// and waits for the initial connection. Reconnects afterwards are automatic;
// tracked subscriptions are replayed and the online status republished each
// time the connection comes back up.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.connectionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.connectionDown(err) })

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously; mark connected here so
	// IsConnected is true as soon as Connect returns.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// connectionUp runs on every (re)connect: replay subscriptions, republish
// the retained online status, then fire the user callback.
func (c *Client) connectionUp() {
	c.mu.Lock()
	c.connected = true
	callback := c.onConnect
	c.mu.Unlock()

	c.subMu.RLock()
	for topic, sub := range c.subs {
		// Errors here are swallowed; the next reconnect retries.
		c.paho.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.subMu.RUnlock()

	c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		systemStatusPayload(c.cfg.Broker.ClientID, "online", ""))

	if callback != nil {
		callback()
	}
}

func (c *Client) connectionDown(err error) {
	c.mu.Lock()
	c.connected = false
	callback := c.onDisconnect
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// Close publishes a graceful offline status (distinct from the LWT reason)
// and disconnects, allowing in-flight operations a quiesce period. Safe to
// call on a zero Client.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			systemStatusPayload(c.cfg.Broker.ClientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.paho.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker connection is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.paho.IsConnected()
}

// SetOnConnect registers a callback fired on initial connect and on every
// reconnect, after subscriptions are replayed.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback fired when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger attaches a logger for handler errors and recovered panics.
// Without one they are dropped silently.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho's callback shape, recovering
// panics so one bad payload cannot take the receive loop down.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
