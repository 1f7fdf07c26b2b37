// Package bridge connects the power-domain registry to MQTT.
//
// The bridge owns the daemon's MQTT surface:
//
//	railgate/command/domain/<name>   inbound enable/disable/set_mode
//	railgate/state/domain/<name>     retained per-domain snapshots
//	railgate/core/event/transition   every completed transition
//
// Commands are JSON payloads:
//
//	{"action": "enable"}
//	{"action": "set_mode", "mode": "fast", "actor": "fleet-ctl"}
//
// The bridge registers itself as a transition observer, so state
// snapshots and events flow out regardless of whether a transition was
// triggered over MQTT, the REST API, or internally.
//
// Every executed command is written to the audit log with source
// "mqtt". Audit failures are logged and swallowed; the audit store is
// an observer of commands, never a gate.
package bridge
