// Package mqtt provides MQTT broker connectivity for the availability service.
//
// This package wraps eclipse/paho.mqtt.golang to provide:
//   - Connection management with automatic reconnection
//   - Subscription tracking with restoration on reconnect
//   - Last Will and Testament for offline detection
//   - Panic recovery around message handlers
//
// The service consumes reservation and catalogue lifecycle events from
// the bus and publishes availability change events drained from the
// outbox. Topic builders live in topics.go.
//
// Thread Safety:
//   - All Client methods are safe for concurrent use.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	err = client.Subscribe(topics.Events("reservations"), 1, handler)
package mqtt
