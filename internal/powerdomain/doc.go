// Package powerdomain implements the gated power-domain controller for
// Railgate Core.
//
// A power domain is a block of logic and memory whose supply rail can
// be collectively gated. Collapsing the rail powers the block down;
// restoring it powers the block back up. The controller sequences both
// transitions against the domain's control registers, coordinated with
// clock votes and reset lines, under tight timing constraints and an
// optional hierarchical dependency on a parent rail.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────┐
//	│                          Domain                                │
//	│                                                                │
//	│  ┌────────────────┐   ┌────────────────┐   ┌────────────────┐  │
//	│  │ Controller     │   │ Sequencer      │   │ Register       │  │
//	│  │ state          │──▶│ (sequence.go)  │──▶│ windows        │  │
//	│  │ (domain.go)    │   │                │   │ (regmap pkg)   │  │
//	│  │                │   │ • enable       │   │                │  │
//	│  │ • Enable/      │   │ • disable      │   │ • main         │  │
//	│  │   Disable      │   │ • mode switch  │   │ • clamp/resets │  │
//	│  │ • mode/status  │   │ • status poll  │   │ • vote bitmap  │  │
//	│  └────────────────┘   └────────────────┘   └────────────────┘  │
//	│          │                                                     │
//	│          ▼                                                     │
//	│  ┌────────────────┐                                            │
//	│  │ Parent rail    │  lock held across disable and mode changes │
//	│  └────────────────┘                                            │
//	└────────────────────────────────────────────────────────────────┘
//
// # Control modes
//
// A domain is toggled in exactly one of two ways, fixed at construction:
//
//   - software-collapse: a collapse request bit (or a per-domain vote in
//     a shared bitmap register) drives the hardware state machine, and a
//     hardware-maintained status bit confirms the transition;
//   - reset-toggled: discrete reset lines are de-asserted to enable and
//     asserted in reverse order to disable, with no status polling.
//
// Independently, a domain that declares hardware-trigger support can be
// handed to fixed-function hardware (ModeFast); software enable is then
// invalid until the domain is switched back to ModeNormal.
//
// # Concurrency
//
// Transitions are synchronous and blocking on the calling goroutine;
// the package starts no goroutines of its own. Callers must not invoke
// Enable, Disable, or SetMode concurrently for the same domain; the
// platform registry serialises transitions by holding the domain's
// rail lock around each call. Locks are only ever acquired upward
// (domain, then its parent), so no ordering cycle can form.
//
// Polling is a busy-wait at microsecond granularity: the status bit
// must be observed within a bound (default 100us) far below practical
// scheduler-wakeup resolution. Transitions cannot be cancelled
// mid-flight; the poll timeout is the only bound. A timeout fails an
// enable but only degrades a disable to a logged warning: an
// unconfirmed disable must not leave the domain stuck "enabled", while
// an unconfirmed enable must never be reported as success.
package powerdomain
