// Package platform builds and manages the power domains of one board.
//
// The platform description is a YAML file listing every gated power
// domain with its register window bindings, clock and reset wiring,
// behavioural flags, and parent rail. The loader resolves those names
// through provider interfaces and constructs powerdomain.Domain values;
// the Registry then owns the constructed domains for the rest of the
// process lifetime.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                           platform                              │
//	│                                                                 │
//	│  ┌───────────────┐   ┌────────────────┐   ┌──────────────────┐  │
//	│  │    Loader     │   │    Registry    │   │     History      │  │
//	│  │  (loader.go)  │──▶│ (registry.go)  │──▶│(history_sqlite.go│  │
//	│  │               │   │                │   │       )          │  │
//	│  │ • YAML parse  │   │ • name lookup  │   │ • SQLite records │  │
//	│  │ • providers   │   │ • transitions  │   │ • newest-first   │  │
//	│  │ • construction│   │ • observers    │   │ • pruning        │  │
//	│  └───────────────┘   └────────────────┘   └──────────────────┘  │
//	│          │                                                      │
//	└──────────│──────────────────────────────────────────────────────┘
//	           ▼
//	┌──────────────────────┐     ┌──────────────────────┐
//	│  RegionProvider /    │     │     Simulator        │
//	│  ClockProvider /     │◀────│      (sim.go)        │
//	│  ResetProvider       │     │  regmap.Mem regions  │
//	└──────────────────────┘     └──────────────────────┘
//
// # Transitions
//
// Every enable, disable, and mode change goes through the Registry,
// which holds the domain's rail lock for the duration of the call.
// That lock discipline gives each domain the serialised transitions the
// sequencer requires, and lets a child domain find its parent's lock
// through the same Domain value. After each completed transition the
// Registry fans an Event out to registered observers: the MQTT state
// publisher, the transition history repository, and the InfluxDB
// telemetry writer all attach here.
//
// # Simulation
//
// With platform.sim enabled in the configuration the providers come
// from NewSimulator, which backs every region with an in-memory
// register window whose power-on status bits follow the collapse
// requests. The daemon then runs end to end without hardware.
package platform
