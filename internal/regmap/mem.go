package regmap

import "sync"

// WriteHook observes a committed write to a Mem window and may rewrite
// the stored value. It is used by the simulated platform to model
// hardware-maintained bits, such as a power-on status bit that follows
// the software collapse request.
//
// The hook runs with the window lock held and must not call back into
// the same Mem.
type WriteHook func(off uint32, val uint32) uint32

// Mem is an in-memory RegMap.
//
// Unwritten registers read as zero. A WriteHook can be attached to
// model status bits that the hardware maintains on its own.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Mem struct {
	mu   sync.Mutex
	regs map[uint32]uint32
	hook WriteHook
}

// NewMem creates an empty in-memory register window.
func NewMem() *Mem {
	return &Mem{regs: make(map[uint32]uint32)}
}

// SetWriteHook attaches a hook that post-processes every write.
// Passing nil removes the hook.
func (m *Mem) SetWriteHook(hook WriteHook) {
	m.mu.Lock()
	m.hook = hook
	m.mu.Unlock()
}

// Read implements RegMap.
func (m *Mem) Read(off uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off], nil
}

// Write implements RegMap.
func (m *Mem) Write(off uint32, val uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(off, val)
	return nil
}

// UpdateBits implements RegMap.
func (m *Mem) UpdateBits(off uint32, mask, val uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(off, (m.regs[off]&^mask)|(val&mask))
	return nil
}

// Set seeds a register value directly, bypassing the write hook.
// Intended for test and simulator setup.
func (m *Mem) Set(off uint32, val uint32) {
	m.mu.Lock()
	m.regs[off] = val
	m.mu.Unlock()
}

// Snapshot returns a copy of all registers that have been written.
func (m *Mem) Snapshot() map[uint32]uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint32]uint32, len(m.regs))
	for off, val := range m.regs {
		out[off] = val
	}
	return out
}

// store commits a write, applying the hook if one is attached.
// Caller must hold mu.
func (m *Mem) store(off uint32, val uint32) {
	if m.hook != nil {
		val = m.hook(off, val)
	}
	m.regs[off] = val
}
