package platform

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/railgate/railgate-core/internal/powerdomain"
)

// Operation identifies a registry transition.
type Operation string

// Transition operations.
const (
	OpEnable  Operation = "enable"
	OpDisable Operation = "disable"
	OpSetMode Operation = "set_mode"
)

// Outcome classifies how a transition ended.
type Outcome string

// Transition outcomes.
const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

// Event describes one completed transition, successful or not.
type Event struct {
	// ID is a unique event identifier.
	ID string `json:"id"`

	// Domain is the power domain name.
	Domain string `json:"domain"`

	// Operation is the transition that ran.
	Operation Operation `json:"operation"`

	// Mode is the target mode for set_mode operations, empty otherwise.
	Mode string `json:"mode,omitempty"`

	// Outcome is ok or error.
	Outcome Outcome `json:"outcome"`

	// Error carries the error text for failed transitions.
	Error string `json:"error,omitempty"`

	// Enabled is the domain's power state after the transition.
	Enabled bool `json:"enabled"`

	// Duration is how long the transition took.
	Duration time.Duration `json:"duration_ns"`

	// PollReads is the number of status reads the transition's final
	// poll performed.
	PollReads int `json:"poll_reads"`

	// Timestamp is when the transition completed (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives transition events after they complete. Observers
// run synchronously on the transitioning goroutine and must not call
// back into the Registry's transition methods.
type Observer interface {
	ObserveTransition(event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event Event)

// ObserveTransition implements Observer.
func (f ObserverFunc) ObserveTransition(event Event) { f(event) }

// Status is a point-in-time snapshot of one domain for the API and
// state publishers.
type Status struct {
	Name       string `json:"name"`
	Index      int    `json:"index"`
	Enabled    bool   `json:"enabled"`
	Mode       string `json:"mode"`
	SkipEnable bool   `json:"skip_enable"`
}

// Registry owns the constructed power domains and serialises their
// transitions.
//
// Each transition holds the domain's rail lock for its whole duration,
// which provides the per-domain serialisation the sequencer requires
// and lets child domains participate in the parent-rail lock
// discipline. Parent locks are only ever acquired from inside a held
// child transition, so acquisition is strictly upward and cannot cycle.
//
// All public methods are thread-safe.
type Registry struct {
	domains map[string]*powerdomain.Domain
	order   []string

	observers []Observer
	logger    Logger
}

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewRegistry creates a registry over the built domains. The domain
// set and observer list are fixed during wiring, before any transition
// runs; only transitions happen concurrently afterwards.
func NewRegistry(domains []*powerdomain.Domain) *Registry {
	r := &Registry{
		domains: make(map[string]*powerdomain.Domain, len(domains)),
		logger:  noopLogger{},
	}
	for _, d := range domains {
		r.domains[d.Name()] = d
		r.order = append(r.order, d.Name())
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddObserver registers an observer for transition events. Must be
// called during wiring, before transitions start.
func (r *Registry) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// Get returns the domain with the given name.
func (r *Registry) Get(name string) (*powerdomain.Domain, error) {
	d, ok := r.domains[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, name)
	}
	return d, nil
}

// Names returns the domain names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered domains.
func (r *Registry) Count() int { return len(r.domains) }

// Status returns a snapshot of one domain.
func (r *Registry) Status(name string) (Status, error) {
	d, err := r.Get(name)
	if err != nil {
		return Status{}, err
	}
	return snapshot(d), nil
}

// StatusAll returns snapshots of every domain in registration order.
func (r *Registry) StatusAll() []Status {
	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, snapshot(r.domains[name]))
	}
	return out
}

// snapshot reads one domain's status under its rail lock, so a read
// concurrent with a transition observes either the old state or the
// new, never a half-written one.
func snapshot(d *powerdomain.Domain) Status {
	d.Lock()
	defer d.Unlock()
	return Status{
		Name:       d.Name(),
		Index:      d.Index(),
		Enabled:    d.IsEnabled(),
		Mode:       d.Mode().String(),
		SkipEnable: d.SkipEnable(),
	}
}

// Enable powers up the named domain.
func (r *Registry) Enable(name string) (Event, error) {
	return r.transition(name, OpEnable, "", func(d *powerdomain.Domain) error {
		return d.Enable()
	})
}

// Disable collapses the named domain.
func (r *Registry) Disable(name string) (Event, error) {
	return r.transition(name, OpDisable, "", func(d *powerdomain.Domain) error {
		return d.Disable()
	})
}

// SetMode switches the named domain's control mode.
func (r *Registry) SetMode(name string, mode powerdomain.Mode) (Event, error) {
	return r.transition(name, OpSetMode, mode.String(), func(d *powerdomain.Domain) error {
		return d.SetMode(mode)
	})
}

// transition runs op under the domain's rail lock and fans the
// resulting event out to observers.
func (r *Registry) transition(name string, op Operation, mode string, fn func(*powerdomain.Domain) error) (Event, error) {
	d, err := r.Get(name)
	if err != nil {
		return Event{}, err
	}

	d.Lock()
	start := time.Now()
	opErr := fn(d)
	duration := time.Since(start)
	event := Event{
		ID:        uuid.NewString(),
		Domain:    name,
		Operation: op,
		Mode:      mode,
		Outcome:   OutcomeOK,
		Enabled:   d.IsEnabled(),
		Duration:  duration,
		PollReads: d.LastPollCount(),
		Timestamp: time.Now().UTC(),
	}
	d.Unlock()

	if opErr != nil {
		event.Outcome = OutcomeError
		event.Error = opErr.Error()
		r.logger.Error("transition failed",
			"domain", name, "operation", string(op), "error", opErr, "duration", duration)
	} else {
		r.logger.Info("transition completed",
			"domain", name, "operation", string(op), "enabled", event.Enabled, "duration", duration)
	}

	for _, o := range r.observers {
		o.ObserveTransition(event)
	}
	return event, opErr
}

// Registers reads the diagnostic register dump of the named domain.
func (r *Registry) Registers(name string) ([]uint32, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return d.Registers()
}

// Stats summarises the registry for monitoring.
type Stats struct {
	TotalDomains int            `json:"total_domains"`
	Enabled      int            `json:"enabled"`
	ByMode       map[string]int `json:"by_mode"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	stats := Stats{
		TotalDomains: len(r.domains),
		ByMode:       make(map[string]int),
	}
	for _, name := range r.order {
		s := snapshot(r.domains[name])
		if s.Enabled {
			stats.Enabled++
		}
		stats.ByMode[s.Mode]++
	}
	return stats
}

// Override key layout: domain.<name>.skip_enable
const (
	overrideDomainPrefix  = "domain."
	overrideSkipEnableKey = "skip_enable"
)

// HandleOverride applies a runtime override change from the overrides
// watcher. Keys take the form domain.<name>.skip_enable; a withdrawn
// key restores the domain's configured default. Unknown keys and
// unknown domains are logged and ignored, the overrides file is
// operator input and must not take the daemon down.
func (r *Registry) HandleOverride(key, value string, present bool) {
	rest, ok := strings.CutPrefix(key, overrideDomainPrefix)
	if !ok {
		return
	}
	name, field, ok := strings.Cut(rest, ".")
	if !ok || field != overrideSkipEnableKey {
		r.logger.Warn("unknown domain override ignored", "key", key)
		return
	}

	d, err := r.Get(name)
	if err != nil {
		r.logger.Warn("override for unknown domain ignored", "key", key)
		return
	}

	if !present {
		d.ResetSkipEnable()
		return
	}
	switch value {
	case "1", "t", "true", "T", "TRUE", "True":
		d.SetSkipEnable(true)
	case "0", "f", "false", "F", "FALSE", "False":
		d.SetSkipEnable(false)
	default:
		r.logger.Warn("malformed skip_enable override ignored", "key", key, "value", value)
	}
}
