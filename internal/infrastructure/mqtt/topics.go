package mqtt

import "fmt"

// TopicPrefixSystem is the base for service status topics.
const TopicPrefixSystem = "availability/system"

// Topics provides builders for the MQTT topics this service publishes to
// and subscribes on. Using these helpers keeps topic naming consistent
// with the other services on the bus.
//
// Event topics follow the shared scheme: {prefix}/event/{EventType}
//
//	topics := mqtt.Topics{}
//	topics.Event("availability", "Availability.Changed")
//	// Returns: "availability/event/Availability.Changed"
type Topics struct{}

// Event returns the topic an event of the given type is published on.
//
// Example: availability/event/Availability.Changed
func (Topics) Event(prefix, eventType string) string {
	return fmt.Sprintf("%s/event/%s", prefix, eventType)
}

// Events returns a subscription pattern matching every event type
// published under a prefix. The event type occupies the final topic
// segment, so a single-level wildcard captures all of them.
//
// Pattern: reservations/event/+
func (Topics) Events(prefix string) string {
	return fmt.Sprintf("%s/event/+", prefix)
}

// SystemStatus returns the service status topic used for the retained
// online/offline message and the Last Will and Testament.
//
// Example: availability/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
