package powerdomain

import (
	"time"

	"github.com/railgate/railgate-core/internal/regmap"
)

// Mode is the control mode of a power domain.
type Mode int

const (
	// ModeNormal means collapse and restore are driven by software
	// register writes through Enable and Disable.
	ModeNormal Mode = iota

	// ModeFast means the domain's power state is driven autonomously by
	// fixed-function hardware; software enable/disable is invalid.
	ModeFast
)

// String returns the mode name for logging and API responses.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeFast:
		return "fast"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode.
// Returns ErrInvalidState for unrecognised names.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "normal":
		return ModeNormal, nil
	case "fast":
		return ModeFast, nil
	default:
		return 0, ErrInvalidState
	}
}

// Clock is a clock handle the domain votes on around power transitions.
//
// Handles are owned by the platform layer; the domain only references
// them. Enable votes the clock on, Disable removes the vote.
type Clock interface {
	Enable() error
	Disable()
}

// ResetLine is a discrete reset handle used by reset-toggled domains.
type ResetLine interface {
	Assert() error
	Deassert() error
}

// ParentRail is the upstream supply of a domain.
//
// The parent's lock must be held across disable and mode-change
// operations of the child so that the enabled-state check and the
// child's register writes are atomic with respect to a concurrent
// parent disable. A *Domain satisfies this interface.
type ParentRail interface {
	Lock()
	Unlock()
	Enabled() (bool, error)
}

// Logger defines the logging interface used by the domain.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Windows holds the register windows of a domain, one per role.
// Main is required; every other window is optional and its presence is
// fixed at construction.
type Windows struct {
	// Main is the domain control register (collapse request, hardware
	// control, retain, status).
	Main regmap.RegMap

	// DomainClamp holds the I/O clamp bit and the AON domain reset bit.
	DomainClamp regmap.RegMap

	// SWReset is the block software reset (assert/deassert pulse during
	// enable).
	SWReset regmap.RegMap

	// ACDReset and ACDMiscReset mirror the software reset pulse on the
	// adaptive clock distribution logic.
	ACDReset     regmap.RegMap
	ACDMiscReset regmap.RegMap

	// HWCtrl is a read-only alias that reflects the true power state
	// while the domain is under hardware control. When present, status
	// polling uses this window instead of Main.
	HWCtrl regmap.RegMap

	// CollapseVote is a shared bitmap register where this domain owns a
	// single vote-to-collapse bit.
	CollapseVote regmap.RegMap
}

// Config is the construction record for a power domain. All fields are
// immutable after New; the only post-construction mutation is the
// skip-enable override, which is exposed separately for runtime
// configuration.
type Config struct {
	// Name identifies the domain in logs and diagnostics.
	Name string

	// Index is a small integer assigned at registration time.
	Index int

	// Regs are the register windows. Regs.Main is required.
	Regs Windows

	// CollapseVoteBit is the bit this domain owns in the collapse-vote
	// bitmap. Only meaningful when Regs.CollapseVote is present.
	CollapseVoteBit uint

	// Clocks is the ordered clock handle list.
	Clocks []Clock

	// RootClockIndex identifies which clock (if any) is the root clock
	// that must be voted around transitions. -1 when there is none.
	RootClockIndex int

	// Resets is the ordered reset handle list, used only when
	// ToggleLogic is false.
	Resets []ResetLine

	// ToggleLogic selects software-collapse toggling when true, and
	// explicit reset-line toggling when false. Exactly one of the two
	// governs the domain for its lifetime.
	ToggleLogic bool

	// RetainFFEnable forces retained-state-on-collapse after a
	// successful enable.
	RetainFFEnable bool

	// RootEnable keeps the root clock voted for as long as the domain
	// is enabled.
	RootEnable bool

	// ForceRootEnable votes the root clock only for the duration of
	// each transition.
	ForceRootEnable bool

	// ResetAON pulses the AON domain reset before clearing the I/O
	// clamp during enable.
	ResetAON bool

	// NoStatusCheckOnDisable replaces disable's status poll with a
	// fixed settle delay of one timeout period.
	NoStatusCheckOnDisable bool

	// SkipDisableBeforeEnable marks a domain whose software enable path
	// is unsafe: Enable returns success without touching hardware and
	// IsEnabled always reports false.
	SkipDisableBeforeEnable bool

	// SupportsHWTrigger permits switching to hardware-autonomous
	// control via SetMode.
	SupportsHWTrigger bool

	// ClkDisWait, when non-nil, programs the clock-disable wait field
	// of the main register during Init.
	ClkDisWait *uint32

	// NoConfigRegister marks domains whose main window implements only
	// the first register; the diagnostic dump then reads one register
	// instead of three.
	NoConfigRegister bool

	// Timeout bounds every status poll. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Parent is the upstream supply rail, if any.
	Parent ParentRail
}
