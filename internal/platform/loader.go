package platform

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/railgate/railgate-core/internal/infrastructure/logging"
	"github.com/railgate/railgate-core/internal/powerdomain"
	"github.com/railgate/railgate-core/internal/regmap"
)

// Load reads and validates a platform description file.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading platform description: %w", err)
	}

	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing platform description: %w", err)
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Build constructs and initialises every domain in the description.
//
// Domains are built in declaration order so parents exist before the
// children that reference them. Construction resolves all named
// resources through the providers; a missing resource or a failed
// hardware init aborts the build, a half-configured platform must not
// come up.
func Build(desc *Description, providers Providers, logger *logging.Logger) ([]*powerdomain.Domain, error) {
	domains := make([]*powerdomain.Domain, 0, len(desc.Domains))
	byName := make(map[string]*powerdomain.Domain, len(desc.Domains))

	for i, spec := range desc.Domains {
		cfg, err := buildConfig(i, spec, providers, byName)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", spec.Name, err)
		}

		d, err := powerdomain.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", spec.Name, err)
		}
		d.SetLogger(logger.With("domain", spec.Name))

		if err := d.Init(); err != nil {
			return nil, fmt.Errorf("domain %s: init: %w", spec.Name, err)
		}

		domains = append(domains, d)
		byName[spec.Name] = d
	}

	logger.Info("platform built", "board", desc.Board, "domains", len(domains))
	return domains, nil
}

// buildConfig resolves one domain spec into a powerdomain configuration.
func buildConfig(index int, spec DomainSpec, providers Providers, parents map[string]*powerdomain.Domain) (powerdomain.Config, error) {
	var cfg powerdomain.Config

	windows, err := resolveWindows(spec.Windows, providers.Regions)
	if err != nil {
		return cfg, err
	}

	clocks := make([]powerdomain.Clock, 0, len(spec.Clocks))
	rootIndex := -1
	for i, name := range spec.Clocks {
		clk, err := providers.Clocks.Clock(name)
		if err != nil {
			return cfg, fmt.Errorf("clock %s: %w", name, err)
		}
		clocks = append(clocks, clk)
		if name == spec.RootClock {
			rootIndex = i
		}
	}

	resets := make([]powerdomain.ResetLine, 0, len(spec.Resets))
	for _, name := range spec.Resets {
		rst, err := providers.Resets.Reset(name)
		if err != nil {
			return cfg, fmt.Errorf("reset %s: %w", name, err)
		}
		resets = append(resets, rst)
	}

	var parent powerdomain.ParentRail
	if spec.Parent != "" {
		p, ok := parents[spec.Parent]
		if !ok {
			return cfg, fmt.Errorf("%w: %s", ErrUnknownParent, spec.Parent)
		}
		parent = p
	}

	cfg = powerdomain.Config{
		Name:            spec.Name,
		Index:           index,
		Regs:            windows,
		CollapseVoteBit: spec.CollapseVoteBit,
		Clocks:          clocks,
		RootClockIndex:  rootIndex,
		Resets:          resets,
		ToggleLogic:     !spec.ResetToggled,

		RetainFFEnable:          spec.Flags.RetainFF,
		RootEnable:              spec.Flags.RootEnable,
		ForceRootEnable:         spec.Flags.ForceRootEnable,
		ResetAON:                spec.Flags.ResetAON,
		NoStatusCheckOnDisable:  spec.Flags.NoStatusCheckOnDisable,
		SkipDisableBeforeEnable: spec.Flags.SkipDisableBeforeEnable,
		SupportsHWTrigger:       spec.Flags.HWTrigger,
		NoConfigRegister:        spec.Flags.NoConfigRegister,

		ClkDisWait: spec.ClkDisWait,
		Timeout:    time.Duration(spec.TimeoutUS) * time.Microsecond,
		Parent:     parent,
	}
	return cfg, nil
}

// resolveWindows maps window role bindings to offset views over the
// provider's regions.
func resolveWindows(specs map[string]WindowSpec, regions RegionProvider) (powerdomain.Windows, error) {
	var w powerdomain.Windows

	for role, binding := range specs {
		region, err := regions.Region(binding.Region)
		if err != nil {
			return w, fmt.Errorf("window %s: %w", role, err)
		}
		rm := regmap.WithBase(region, binding.Offset)

		switch role {
		case WindowMain:
			w.Main = rm
		case WindowDomainClamp:
			w.DomainClamp = rm
		case WindowSWReset:
			w.SWReset = rm
		case WindowACDReset:
			w.ACDReset = rm
		case WindowACDMiscReset:
			w.ACDMiscReset = rm
		case WindowHWCtrl:
			w.HWCtrl = rm
		case WindowCollapseVote:
			w.CollapseVote = rm
		default:
			return w, fmt.Errorf("%w: unknown window role %q", ErrInvalidDescription, role)
		}
	}
	return w, nil
}
