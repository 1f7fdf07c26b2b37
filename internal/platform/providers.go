package platform

import (
	"github.com/railgate/railgate-core/internal/powerdomain"
	"github.com/railgate/railgate-core/internal/regmap"
)

// RegionProvider resolves region names from the platform description to
// register windows. The real implementation maps hardware windows; the
// simulator serves in-memory ones. Register transport is out of scope
// here, this boundary is where it plugs in.
type RegionProvider interface {
	// Region returns the register window for name, or an error wrapping
	// ErrUnknownRegion.
	Region(name string) (regmap.RegMap, error)
}

// ClockProvider resolves clock names to vote handles.
type ClockProvider interface {
	// Clock returns the clock handle for name, or an error wrapping
	// ErrUnknownClock.
	Clock(name string) (powerdomain.Clock, error)
}

// ResetProvider resolves reset line names.
type ResetProvider interface {
	// Reset returns the reset line for name, or an error wrapping
	// ErrUnknownReset.
	Reset(name string) (powerdomain.ResetLine, error)
}

// Providers bundles the three resolvers a build needs.
type Providers struct {
	Regions RegionProvider
	Clocks  ClockProvider
	Resets  ResetProvider
}
