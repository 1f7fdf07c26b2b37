package platform

import (
	"sync"

	"github.com/railgate/railgate-core/internal/powerdomain"
	"github.com/railgate/railgate-core/internal/regmap"
)

// Simulator provides in-memory regions, clocks, and reset lines so the
// daemon can run without hardware. Every name resolves: regions are
// created on first use with a write hook that makes the power-on status
// bit (bit 31) immediately follow the inverse of the collapse request
// (bit 0), modelling a well-behaved rail.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	regions map[string]*regmap.Mem
	clocks  map[string]*simClock
	resets  map[string]*simReset
}

// NewSimulator creates an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		regions: make(map[string]*regmap.Mem),
		clocks:  make(map[string]*simClock),
		resets:  make(map[string]*simReset),
	}
}

// Providers returns the simulator wired as all three providers.
func (s *Simulator) Providers() Providers {
	return Providers{Regions: s, Clocks: s, Resets: s}
}

// Region implements RegionProvider.
func (s *Simulator) Region(name string) (regmap.RegMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.regions[name]
	if !ok {
		mem = regmap.NewMem()
		mem.SetWriteHook(func(_ uint32, val uint32) uint32 {
			if val&regmap.Bit(0) == 0 {
				return val | regmap.Bit(31)
			}
			return val &^ regmap.Bit(31)
		})
		s.regions[name] = mem
	}
	return mem, nil
}

// Clock implements ClockProvider.
func (s *Simulator) Clock(name string) (powerdomain.Clock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clk, ok := s.clocks[name]
	if !ok {
		clk = &simClock{}
		s.clocks[name] = clk
	}
	return clk, nil
}

// Reset implements ResetProvider.
func (s *Simulator) Reset(name string) (powerdomain.ResetLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rst, ok := s.resets[name]
	if !ok {
		rst = &simReset{}
		s.resets[name] = rst
	}
	return rst, nil
}

// ClockVotes returns the current vote count for a clock name. Zero for
// clocks that were never resolved.
func (s *Simulator) ClockVotes(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clk, ok := s.clocks[name]; ok {
		return clk.votes()
	}
	return 0
}

// ResetAsserted reports whether a reset line is currently asserted.
func (s *Simulator) ResetAsserted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rst, ok := s.resets[name]; ok {
		return rst.asserted()
	}
	return false
}

type simClock struct {
	mu    sync.Mutex
	count int
}

func (c *simClock) Enable() error {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return nil
}

func (c *simClock) Disable() {
	c.mu.Lock()
	if c.count > 0 {
		c.count--
	}
	c.mu.Unlock()
}

func (c *simClock) votes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

type simReset struct {
	mu sync.Mutex
	on bool
}

func (r *simReset) Assert() error {
	r.mu.Lock()
	r.on = true
	r.mu.Unlock()
	return nil
}

func (r *simReset) Deassert() error {
	r.mu.Lock()
	r.on = false
	r.mu.Unlock()
	return nil
}

func (r *simReset) asserted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}
