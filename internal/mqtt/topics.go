package mqtt

import "fmt"

// Availability payloads.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics builds the topic layout of one light entity.
type Topics struct {
	Base            string // e.g. "combinedd"
	ObjectID        string // e.g. "living_room"
	DiscoveryPrefix string // e.g. "homeassistant"
}

// State is the retained JSON state topic.
func (t Topics) State() string {
	return fmt.Sprintf("%s/light/%s/state", t.Base, t.ObjectID)
}

// Command is where on/off/brightness requests arrive.
func (t Topics) Command() string {
	return fmt.Sprintf("%s/light/%s/set", t.Base, t.ObjectID)
}

// Availability carries online/offline, including the last will.
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/status", t.Base)
}

// Discovery is the Home Assistant discovery config topic.
func (t Topics) Discovery() string {
	return fmt.Sprintf("%s/light/%s/%s/config", t.DiscoveryPrefix, t.Base, t.ObjectID)
}
