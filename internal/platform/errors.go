package platform

import "errors"

// Domain errors for the platform package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, platform.ErrDomainNotFound) {
//	    // handle unknown domain name
//	}
var (
	// ErrDomainNotFound is returned when a domain name does not exist in
	// the registry.
	ErrDomainNotFound = errors.New("platform: domain not found")

	// ErrInvalidDescription is returned when the platform description
	// fails validation.
	ErrInvalidDescription = errors.New("platform: invalid description")

	// ErrUnknownRegion is returned when a window binding names a region
	// the provider cannot supply.
	ErrUnknownRegion = errors.New("platform: unknown region")

	// ErrUnknownClock is returned when a clock name cannot be resolved.
	ErrUnknownClock = errors.New("platform: unknown clock")

	// ErrUnknownReset is returned when a reset name cannot be resolved.
	ErrUnknownReset = errors.New("platform: unknown reset")

	// ErrUnknownParent is returned when a domain names a parent that is
	// not declared before it in the description.
	ErrUnknownParent = errors.New("platform: unknown parent domain")
)
