package powerdomain

import "errors"

// Domain errors for the powerdomain package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, powerdomain.ErrTimeout) {
//	    // handle status-poll timeout
//	}
//
// Transport failures from the register windows are not translated; they
// are wrapped and propagated so callers can still inspect the original
// error from the RegMap implementation.
var (
	// ErrInvalidState is returned when an operation is invalid for the
	// domain's current state, such as a software enable while the domain
	// is under autonomous hardware control, or an unknown mode value.
	ErrInvalidState = errors.New("powerdomain: invalid state")

	// ErrTimeout is returned when the power-on status bit does not reach
	// the expected value within the configured poll timeout.
	ErrTimeout = errors.New("powerdomain: status poll timed out")

	// ErrParentUnavailable is returned when a disable or mode change is
	// requested while the configured parent rail reports disabled.
	ErrParentUnavailable = errors.New("powerdomain: parent rail disabled")

	// ErrResource is returned at construction time when a required
	// register window, clock, or reset handle is missing or inconsistent.
	ErrResource = errors.New("powerdomain: missing resource")
)
