package powerdomain

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Main control register layout (GDSCR).
const (
	pwrOnMask       = uint32(1) << 31
	clkDisWaitMask  = uint32(0xF) << 12
	clkDisWaitShift = 12
	retainFFMask    = uint32(1) << 11
	swOverrideMask  = uint32(1) << 2
	hwControlMask   = uint32(1) << 1
	swCollapseMask  = uint32(1) << 0
)

// Domain-clamp register layout.
const (
	clampIOMask     = uint32(1) << 0
	domainResetMask = uint32(1) << 4
)

// Software-reset register layout.
const blockAresMask = uint32(1) << 0

// Every window is accessed at a fixed offset from its base.
const regOffset = 0x0

// regStride is the byte distance between consecutive registers of the
// main window, used by the diagnostic dump.
const regStride = 4

const (
	// DefaultTimeout bounds status polling when the configuration does
	// not specify one.
	DefaultTimeout = 100 * time.Microsecond

	// pollInterval is the spacing between status reads. The status bit
	// must be observed at microsecond granularity; the timeout window is
	// far below scheduler-wakeup resolution, so the poll loop deliberately
	// busy-waits in fixed steps instead of using timer events.
	pollInterval = time.Microsecond

	// settleDelay covers the fixed hardware settling points in the
	// sequences: reset hold, clock re-enable, and staggered memory
	// power transitions.
	settleDelay = time.Microsecond
)

// Domain is one gated power domain.
//
// Callers must not invoke Enable, Disable, or SetMode concurrently for
// the same domain; the surrounding framework is expected to serialise
// transitions per domain (the registry does this by holding the
// domain's rail lock around each operation). The rail lock itself is
// exported so that child domains can coordinate against their parent.
type Domain struct {
	cfg     Config
	timeout time.Duration

	// mu is the rail lock. Children acquire it before checking this
	// domain's enabled state and before their own register writes in
	// disable and mode changes.
	mu sync.Mutex

	// skipEnable mirrors Config.SkipDisableBeforeEnable and may be
	// flipped at runtime through the overrides file.
	skipEnable atomic.Bool

	// Mutable status. Only transition calls on the owning goroutine
	// touch these; see the serialisation contract above.
	enabled        bool
	hwControlMode  bool
	resetsAsserted bool
	rootClkVoted   bool

	// lastPollCount records how many status reads the most recent poll
	// performed, for telemetry.
	lastPollCount int

	logger Logger

	// Injected time sources. Tests replace these to make the poll
	// deadline deterministic.
	now   func() time.Time
	sleep func(time.Duration)
}

// New validates the configuration and constructs a domain.
//
// No hardware is touched; call Init afterwards to apply the one-time
// register setup and read back the initial state. A missing required
// resource fails with ErrResource.
func New(cfg Config) (*Domain, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: domain name is required", ErrResource)
	}
	if cfg.Regs.Main == nil {
		return nil, fmt.Errorf("%w: %s has no main register window", ErrResource, cfg.Name)
	}
	if cfg.RootEnable || cfg.ForceRootEnable {
		if cfg.RootClockIndex < 0 || cfg.RootClockIndex >= len(cfg.Clocks) {
			return nil, fmt.Errorf("%w: %s requires a root clock but none is configured", ErrResource, cfg.Name)
		}
	}
	if cfg.Regs.CollapseVote != nil && cfg.CollapseVoteBit > 31 {
		return nil, fmt.Errorf("%w: %s collapse vote bit %d out of range", ErrResource, cfg.Name, cfg.CollapseVoteBit)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	d := &Domain{
		cfg:     cfg,
		timeout: cfg.Timeout,
		logger:  noopLogger{},
		now:     time.Now,
		sleep:   time.Sleep,
	}
	d.skipEnable.Store(cfg.SkipDisableBeforeEnable)
	return d, nil
}

// SetLogger sets the logger for the domain.
func (d *Domain) SetLogger(logger Logger) {
	d.logger = logger
}

// Name returns the domain name.
func (d *Domain) Name() string { return d.cfg.Name }

// Index returns the registration index.
func (d *Domain) Index() int { return d.cfg.Index }

// Init applies the one-time hardware setup and reads back the initial
// domain state. Any register failure here is fatal to registration:
// a half-configured domain must not exist.
//
// Setup performed:
//  1. Hardware trigger and software override are disabled so collapse
//     and restore occur on register writes through the hardware state
//     machine.
//  2. The clock-disable wait field is programmed when configured.
//  3. Reset-toggled domains clear the collapse request and wait for
//     the rail to report powered.
//  4. The cached enabled and control-mode states are initialised from
//     the registers.
func (d *Domain) Init() error {
	val, err := d.cfg.Regs.Main.Read(regOffset)
	if err != nil {
		return fmt.Errorf("reading control register: %w", err)
	}
	val &^= hwControlMask | swOverrideMask

	if d.cfg.ClkDisWait != nil {
		val &^= clkDisWaitMask
		val |= (*d.cfg.ClkDisWait << clkDisWaitShift) & clkDisWaitMask
	}

	if err := d.cfg.Regs.Main.Write(regOffset, val); err != nil {
		return fmt.Errorf("writing control register: %w", err)
	}

	if !d.cfg.ToggleLogic {
		val &^= swCollapseMask
		if err := d.cfg.Regs.Main.Write(regOffset, val); err != nil {
			return fmt.Errorf("clearing collapse request: %w", err)
		}
		if _, err := d.pollStatus(statusEnabled); err != nil {
			return fmt.Errorf("%s initial enable: %w", d.cfg.Name, err)
		}
	}

	if err := d.initEnabledState(); err != nil {
		return fmt.Errorf("%s initial enable state: %w", d.cfg.Name, err)
	}
	if err := d.initControlMode(); err != nil {
		return fmt.Errorf("%s initial control mode: %w", d.cfg.Name, err)
	}
	return nil
}

// initEnabledState reads back whether the domain is currently powered.
// For reset-toggled domains the driver is the sole source of truth and
// no hardware read is needed.
func (d *Domain) initEnabledState() error {
	if !d.cfg.ToggleLogic {
		d.enabled = !d.resetsAsserted
		return nil
	}

	rm := d.cfg.Regs.Main
	mask := swCollapseMask
	if d.cfg.Regs.CollapseVote != nil {
		rm = d.cfg.Regs.CollapseVote
		mask = 1 << d.cfg.CollapseVoteBit
	}

	val, err := rm.Read(regOffset)
	if err != nil {
		return err
	}
	d.enabled = val&mask == 0
	return nil
}

// initControlMode reads back whether the domain starts out under
// autonomous hardware control.
func (d *Domain) initControlMode() error {
	val, err := d.cfg.Regs.Main.Read(regOffset)
	if err != nil {
		return err
	}
	d.hwControlMode = val&hwControlMask != 0
	return nil
}

// IsEnabled reports whether the domain is powered.
//
// Reset-toggled domains report the negation of the tracked reset
// assertion; no hardware read happens. Domains with the skip-enable
// override always report disabled regardless of cached state: their
// rail must never be trusted as already powered. Otherwise the cached
// status from the last transition is returned.
func (d *Domain) IsEnabled() bool {
	if !d.cfg.ToggleLogic {
		return !d.resetsAsserted
	}
	if d.skipEnable.Load() {
		return false
	}
	return d.enabled
}

// Mode returns the current control mode.
func (d *Domain) Mode() Mode {
	if d.hwControlMode {
		return ModeFast
	}
	return ModeNormal
}

// SetSkipEnable flips the skip-enable override at runtime.
func (d *Domain) SetSkipEnable(skip bool) {
	if d.skipEnable.Swap(skip) != skip {
		d.logger.Info("skip-enable override changed", "domain", d.cfg.Name, "skip", skip)
	}
}

// SkipEnable reports the current skip-enable override.
func (d *Domain) SkipEnable() bool { return d.skipEnable.Load() }

// ResetSkipEnable restores the skip-enable override to its configured
// default, used when a runtime override is withdrawn.
func (d *Domain) ResetSkipEnable() { d.SetSkipEnable(d.cfg.SkipDisableBeforeEnable) }

// LastPollCount returns how many status reads the most recent poll
// performed. Zero when the last transition did not poll.
func (d *Domain) LastPollCount() int { return d.lastPollCount }

// Lock acquires the rail lock. Exported for the registry (which holds
// it across each transition of this domain) and used internally by
// child domains before consulting this domain as their parent.
func (d *Domain) Lock() { d.mu.Lock() }

// Unlock releases the rail lock.
func (d *Domain) Unlock() { d.mu.Unlock() }

// Enabled implements ParentRail. The caller must hold the rail lock.
func (d *Domain) Enabled() (bool, error) {
	return d.IsEnabled(), nil
}

// Registers reads up to three consecutive registers starting at the
// main control offset. Domains flagged NoConfigRegister implement only
// the first register. The read never mutates hardware state.
func (d *Domain) Registers() ([]uint32, error) {
	count := 3
	if d.cfg.NoConfigRegister {
		count = 1
	}

	vals := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		val, err := d.cfg.Regs.Main.Read(regOffset + uint32(i*regStride))
		if err != nil {
			return nil, fmt.Errorf("reading register %d: %w", i, err)
		}
		vals = append(vals, val)
	}
	return vals, nil
}

// DumpRegisters logs the control register block for diagnostics.
// A failed read is logged and swallowed; the dump never propagates
// errors or mutates state.
func (d *Domain) DumpRegisters() {
	vals, err := d.Registers()
	if err != nil {
		d.logger.Error("register dump failed", "domain", d.cfg.Name, "error", err)
		return
	}

	args := []any{"domain", d.cfg.Name, "gdscr", fmt.Sprintf("%#.8x", vals[0])}
	if len(vals) > 1 {
		args = append(args, "cfg", fmt.Sprintf("%#.8x", vals[1]), "cfg2", fmt.Sprintf("%#.8x", vals[2]))
	}
	d.logger.Info("register dump", args...)
}

// barrier issues a read-back on the main window. It stands in for a
// memory barrier: the read cannot complete until preceding writes have
// been posted to the bus. The value and any error are ignored.
func (d *Domain) barrier() {
	_, _ = d.cfg.Regs.Main.Read(regOffset)
}

// voteRootClock votes the root clock on. A clock failure is logged and
// the vote still recorded, matching the best-effort treatment of clock
// handles around transitions.
func (d *Domain) voteRootClock() {
	if err := d.cfg.Clocks[d.cfg.RootClockIndex].Enable(); err != nil {
		d.logger.Warn("root clock vote failed", "domain", d.cfg.Name, "error", err)
	}
	d.rootClkVoted = true
}

// unvoteRootClock removes the root clock vote.
func (d *Domain) unvoteRootClock() {
	d.cfg.Clocks[d.cfg.RootClockIndex].Disable()
	d.rootClkVoted = false
}

// releaseTransientRootVote drops the root vote on a failed transition
// when the vote was only held for the duration of the call. Persistent
// votes (RootEnable) are kept: the invariant is that the vote is held
// exactly while the domain is meant to keep its root clock on.
func (d *Domain) releaseTransientRootVote() {
	if d.rootClkVoted && d.cfg.ForceRootEnable && !d.cfg.RootEnable {
		d.unvoteRootClock()
	}
}

type pollTarget int

const (
	statusEnabled pollTarget = iota
	statusDisabled
)

// pollStatus waits for the power-on status bit to reach the wanted
// state, reading at pollInterval granularity until the configured
// timeout. The hardware-control alias window is authoritative when
// present.
//
// The deadline is taken from the injected clock before the first read,
// and checked after each sleep, so the loop performs exactly
// timeout/pollInterval reads before giving up. There is no guarantee
// about the delay needed for the status bit to change after the state
// machine is kicked, hence the tight re-check rather than a single
// long wait.
//
// Returns the number of reads performed, and ErrTimeout (or a wrapped
// transport error) on failure.
func (d *Domain) pollStatus(want pollTarget) (int, error) {
	rm := d.cfg.Regs.Main
	if d.cfg.Regs.HWCtrl != nil {
		rm = d.cfg.Regs.HWCtrl
	}

	deadline := d.now().Add(d.timeout)
	reads := 0
	for {
		val, err := rm.Read(regOffset)
		if err != nil {
			return reads, fmt.Errorf("reading status: %w", err)
		}
		reads++

		on := val&pwrOnMask != 0
		if (want == statusEnabled) == on {
			return reads, nil
		}

		d.sleep(pollInterval)
		if !d.now().Before(deadline) {
			return reads, ErrTimeout
		}
	}
}
