package platform

import (
	"fmt"
	"strings"
)

// Window role names used in platform descriptions. Each maps to one
// slot of powerdomain.Windows.
const (
	WindowMain         = "main"
	WindowDomainClamp  = "domain_clamp"
	WindowSWReset      = "sw_reset"
	WindowACDReset     = "acd_reset"
	WindowACDMiscReset = "acd_misc_reset"
	WindowHWCtrl       = "hw_ctrl"
	WindowCollapseVote = "collapse_vote"
)

// knownWindows lists every accepted window role.
var knownWindows = map[string]bool{
	WindowMain:         true,
	WindowDomainClamp:  true,
	WindowSWReset:      true,
	WindowACDReset:     true,
	WindowACDMiscReset: true,
	WindowHWCtrl:       true,
	WindowCollapseVote: true,
}

// Description is the parsed platform description file.
type Description struct {
	// Board is a free-form identifier logged at startup.
	Board string `yaml:"board"`

	// Domains lists every gated power domain, parents before children.
	Domains []DomainSpec `yaml:"domains"`
}

// WindowSpec binds one register window role to an offset within a
// named region.
type WindowSpec struct {
	Region string `yaml:"region"`
	Offset uint32 `yaml:"offset"`
}

// DomainSpec describes one power domain.
type DomainSpec struct {
	Name string `yaml:"name"`

	// Windows maps role names (main, domain_clamp, sw_reset, acd_reset,
	// acd_misc_reset, hw_ctrl, collapse_vote) to region bindings. Only
	// main is required.
	Windows map[string]WindowSpec `yaml:"windows"`

	// CollapseVoteBit is this domain's bit in the shared vote bitmap.
	// Only meaningful with a collapse_vote window.
	CollapseVoteBit uint `yaml:"collapse_vote_bit"`

	// Clocks are the clock names voted around transitions. RootClock,
	// when set, must name one of them.
	Clocks    []string `yaml:"clocks"`
	RootClock string   `yaml:"root_clock"`

	// Resets are the reset line names for reset-toggled domains.
	Resets []string `yaml:"resets"`

	// ResetToggled marks a domain whose power state is driven purely by
	// its reset lines instead of the collapse state machine.
	ResetToggled bool `yaml:"reset_toggled"`

	Flags DomainFlags `yaml:"flags"`

	// ClkDisWait programs the clock-disable wait field when non-nil.
	ClkDisWait *uint32 `yaml:"clk_dis_wait"`

	// TimeoutUS bounds status polling, in microseconds. Zero selects
	// the default.
	TimeoutUS int `yaml:"timeout_us"`

	// Parent names the upstream rail. It must be declared earlier in
	// the domain list.
	Parent string `yaml:"parent"`
}

// DomainFlags carries the behavioural quirks of a domain.
type DomainFlags struct {
	RetainFF                bool `yaml:"retain_ff"`
	RootEnable              bool `yaml:"root_enable"`
	ForceRootEnable         bool `yaml:"force_root_enable"`
	ResetAON                bool `yaml:"reset_aon"`
	NoStatusCheckOnDisable  bool `yaml:"no_status_check_on_disable"`
	SkipDisableBeforeEnable bool `yaml:"skip_disable_before_enable"`
	HWTrigger               bool `yaml:"hw_trigger"`
	NoConfigRegister        bool `yaml:"no_config_register"`
}

// Validate checks the description for structural errors. Resource
// resolution happens later at construction; this only verifies what
// the file alone can prove wrong.
func (d *Description) Validate() error {
	var errs []string

	if len(d.Domains) == 0 {
		errs = append(errs, "at least one domain is required")
	}

	seen := make(map[string]int, len(d.Domains))
	for i, dom := range d.Domains {
		prefix := fmt.Sprintf("domains[%d]", i)
		if dom.Name != "" {
			prefix = fmt.Sprintf("domain %q", dom.Name)
		}

		if dom.Name == "" {
			errs = append(errs, prefix+": name is required")
		} else if _, dup := seen[dom.Name]; dup {
			errs = append(errs, prefix+": duplicate name")
		}
		seen[dom.Name] = i

		if _, ok := dom.Windows[WindowMain]; !ok {
			errs = append(errs, prefix+": main window is required")
		}
		for role := range dom.Windows {
			if !knownWindows[role] {
				errs = append(errs, fmt.Sprintf("%s: unknown window role %q", prefix, role))
			}
		}

		if dom.RootClock != "" && !contains(dom.Clocks, dom.RootClock) {
			errs = append(errs, prefix+": root_clock is not in clocks")
		}
		if (dom.Flags.RootEnable || dom.Flags.ForceRootEnable) && dom.RootClock == "" {
			errs = append(errs, prefix+": root clock flags require root_clock")
		}

		if dom.ResetToggled && len(dom.Resets) == 0 {
			errs = append(errs, prefix+": reset_toggled requires resets")
		}
		if !dom.ResetToggled && len(dom.Resets) > 0 {
			errs = append(errs, prefix+": resets are only used by reset_toggled domains")
		}

		if dom.Parent != "" {
			pi, ok := seen[dom.Parent]
			if !ok || pi >= i {
				errs = append(errs, prefix+": parent must be declared earlier in the list")
			}
		}

		if dom.TimeoutUS < 0 {
			errs = append(errs, prefix+": timeout_us must not be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDescription, strings.Join(errs, "; "))
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
