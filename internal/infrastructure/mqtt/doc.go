// Package mqtt provides MQTT client connectivity for Railgate Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Railgate uses MQTT as its outward message bus: the daemon publishes
// retained per-domain state and a transition event stream, and accepts
// enable/disable/mode commands from fleet tooling. The broker decouples
// the daemon from whatever is driving it.
//
//	Railgate Core ↔ MQTT Broker ↔ Fleet tooling / dashboards
//
// # Topic Layout
//
//	railgate/state/domain/<name>     retained state snapshots
//	railgate/command/domain/<name>   inbound commands
//	railgate/core/event/transition   every completed transition
//	railgate/core/status             daemon online/offline (LWT)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all domain commands
//	err = client.Subscribe(mqtt.Topics{}.AllDomainCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish retained domain state
//	topic := mqtt.Topics{}.DomainState("gpu_gx")
//	client.PublishRetained(topic, []byte(`{"enabled":true}`))
package mqtt
