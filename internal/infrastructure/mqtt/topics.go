package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Railgate MQTT surface.
//
// Domain topics use the flat scheme: railgate/{category}/domain/{name}
const (
	// TopicPrefix is the base for all Railgate topics.
	TopicPrefix = "railgate"

	// TopicPrefixCore is the base for daemon-level topics.
	TopicPrefixCore = "railgate/core"
)

// Topics provides builders for Railgate MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DomainState("gpu_gx")
//	// Returns: "railgate/state/domain/gpu_gx"
type Topics struct{}

// DomainState returns the retained state topic for a power domain.
//
// Example: railgate/state/domain/gpu_gx
func (Topics) DomainState(name string) string {
	return fmt.Sprintf("%s/state/domain/%s", TopicPrefix, name)
}

// DomainCommand returns the command topic for a power domain.
//
// Example: railgate/command/domain/gpu_gx
func (Topics) DomainCommand(name string) string {
	return fmt.Sprintf("%s/command/domain/%s", TopicPrefix, name)
}

// TransitionEvent returns the topic carrying every completed transition.
//
// Example: railgate/core/event/transition
func (Topics) TransitionEvent() string {
	return fmt.Sprintf("%s/event/transition", TopicPrefixCore)
}

// CoreStatus returns the daemon status topic. The LWT and the graceful
// shutdown message both land here, retained.
//
// Example: railgate/core/status
func (Topics) CoreStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixCore)
}

// AllDomainStates returns a pattern matching every domain state topic.
//
// Pattern: railgate/state/domain/+
func (Topics) AllDomainStates() string {
	return fmt.Sprintf("%s/state/domain/+", TopicPrefix)
}

// AllDomainCommands returns a pattern matching every domain command topic.
//
// Pattern: railgate/command/domain/+
func (Topics) AllDomainCommands() string {
	return fmt.Sprintf("%s/command/domain/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Railgate topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: railgate/#
func (Topics) AllTopics() string {
	return "railgate/#"
}

// CommandDomain extracts the domain name from a command topic. It
// returns false for topics outside the command hierarchy.
func (Topics) CommandDomain(topic string) (string, bool) {
	name, ok := strings.CutPrefix(topic, TopicPrefix+"/command/domain/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
