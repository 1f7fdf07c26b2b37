// Package regmap provides 32-bit register window access for Railgate Core.
//
// A register window is a small addressable view onto a block of hardware
// control registers. The power-domain sequencer drives every hardware
// interaction through the RegMap interface, which keeps the transport
// (memory-mapped I/O, a syscon bridge, or the in-memory simulator)
// swappable without touching sequencing logic.
//
// # Key Types
//
//   - RegMap: read/write/update-bits contract for one register window
//   - Mem: thread-safe in-memory implementation used by the simulated
//     platform and by package tests
//
// # Error Handling
//
// Reads and writes are synchronous and may fail at the transport layer.
// Implementations return the transport error unchanged; callers are
// expected to abort the current operation on any failure rather than
// retry at this layer.
package regmap
