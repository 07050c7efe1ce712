package mqtt

import "fmt"

// Topic prefixes for the garage bridge.
//
// Per-accessory topics use the flat scheme: garage/{category}/{accessory_id}
const (
	// TopicPrefix is the base for all garage bridge topics.
	TopicPrefix = "garage"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "garage/system"
)

// Topics provides builders for garage bridge MQTT topics.
//
//	stateTopic := mqtt.Topics{}.State("garage-main")
//	// Returns: "garage/state/garage-main"
type Topics struct{}

// State returns the retained door state topic for an accessory.
//
// Example: garage/state/garage-main
func (Topics) State(accessoryID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, accessoryID)
}

// Command returns the topic on which target door state commands are accepted.
//
// Example: garage/command/garage-main
func (Topics) Command(accessoryID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, accessoryID)
}

// Ack returns the topic for command acknowledgements.
//
// Example: garage/ack/garage-main
func (Topics) Ack(accessoryID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, accessoryID)
}

// SystemStatus returns the bridge online/offline status topic.
//
// Example: garage/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
