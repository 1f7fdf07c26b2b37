package platform

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/railgate/railgate-core/internal/powerdomain"
)

func newTestRegistry(t *testing.T) (*Registry, *Simulator) {
	t.Helper()

	desc, err := Load(writePlatformFile(t, testPlatformYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	sim := NewSimulator()
	domains, err := Build(desc, sim.Providers(), testLogger())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return NewRegistry(domains), sim
}

func TestRegistry_DisableEnableCycle(t *testing.T) {
	reg, sim := newTestRegistry(t)

	event, err := reg.Disable("pcie_tbu")
	if err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if event.Operation != OpDisable || event.Outcome != OutcomeOK {
		t.Errorf("event = %s/%s, want disable/ok", event.Operation, event.Outcome)
	}
	if event.Enabled {
		t.Error("event reports enabled after disable")
	}
	if _, err := uuid.Parse(event.ID); err != nil {
		t.Errorf("event ID %q is not a UUID: %v", event.ID, err)
	}
	if !sim.ResetAsserted("pcie_tbu_ares") {
		t.Error("reset line not asserted after disable")
	}

	event, err = reg.Enable("pcie_tbu")
	if err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if !event.Enabled {
		t.Error("event reports disabled after enable")
	}
	if sim.ResetAsserted("pcie_tbu_ares") {
		t.Error("reset line still asserted after enable")
	}
}

func TestRegistry_UnknownDomain(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.Enable("nope"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Enable() error = %v, want ErrDomainNotFound", err)
	}
	if _, err := reg.Status("nope"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Status() error = %v, want ErrDomainNotFound", err)
	}
	if _, err := reg.Registers("nope"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Registers() error = %v, want ErrDomainNotFound", err)
	}
}

func TestRegistry_ObserverFanOut(t *testing.T) {
	reg, _ := newTestRegistry(t)

	var first, second []Event
	reg.AddObserver(ObserverFunc(func(e Event) { first = append(first, e) }))
	reg.AddObserver(ObserverFunc(func(e Event) { second = append(second, e) }))

	event, err := reg.Disable("pcie_tbu")
	if err != nil {
		t.Fatalf("Disable() error = %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("observers got %d/%d events, want 1/1", len(first), len(second))
	}
	if first[0].ID != event.ID || second[0].ID != event.ID {
		t.Error("observers saw a different event than the caller")
	}
}

func TestRegistry_FailedTransitionEvent(t *testing.T) {
	reg, _ := newTestRegistry(t)

	var events []Event
	reg.AddObserver(ObserverFunc(func(e Event) { events = append(events, e) }))

	if _, err := reg.Disable("gpu_cx"); err != nil {
		t.Fatalf("Disable(gpu_cx) error = %v", err)
	}

	event, err := reg.Disable("gpu_gx")
	if !errors.Is(err, powerdomain.ErrParentUnavailable) {
		t.Fatalf("Disable(gpu_gx) error = %v, want ErrParentUnavailable", err)
	}
	if event.Outcome != OutcomeError {
		t.Errorf("event outcome = %s, want error", event.Outcome)
	}
	if event.Error == "" {
		t.Error("error event has empty error text")
	}

	// Observers see failures too; the history and metrics sinks record
	// them alongside successes.
	if len(events) != 2 {
		t.Fatalf("observers got %d events, want 2", len(events))
	}
	if events[1].Outcome != OutcomeError {
		t.Errorf("observed outcome = %s, want error", events[1].Outcome)
	}
}

func TestRegistry_SetMode(t *testing.T) {
	reg, _ := newTestRegistry(t)

	event, err := reg.SetMode("gpu_cx", powerdomain.ModeFast)
	if err != nil {
		t.Fatalf("SetMode(fast) error = %v", err)
	}
	if event.Mode != "fast" || event.Operation != OpSetMode {
		t.Errorf("event = %s/%s, want set_mode/fast", event.Operation, event.Mode)
	}

	status, err := reg.Status("gpu_cx")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Mode != "fast" {
		t.Errorf("status mode = %q, want fast", status.Mode)
	}

	if _, err := reg.SetMode("gpu_cx", powerdomain.ModeNormal); err != nil {
		t.Fatalf("SetMode(normal) error = %v", err)
	}

	// gpu_gx was built without hw_trigger.
	if _, err := reg.SetMode("gpu_gx", powerdomain.ModeFast); !errors.Is(err, powerdomain.ErrInvalidState) {
		t.Errorf("SetMode on unsupported domain error = %v, want ErrInvalidState", err)
	}
}

func TestRegistry_StatusAll(t *testing.T) {
	reg, _ := newTestRegistry(t)

	statuses := reg.StatusAll()
	wantOrder := []string{"gpu_cx", "gpu_gx", "pcie_tbu"}
	if len(statuses) != len(wantOrder) {
		t.Fatalf("got %d statuses, want %d", len(statuses), len(wantOrder))
	}
	for i, want := range wantOrder {
		if statuses[i].Name != want {
			t.Errorf("statuses[%d] = %s, want %s", i, statuses[i].Name, want)
		}
		if statuses[i].Index != i {
			t.Errorf("%s index = %d, want %d", want, statuses[i].Index, i)
		}
		if !statuses[i].Enabled {
			t.Errorf("%s not enabled after build", want)
		}
	}
}

func TestRegistry_GetStats(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.Disable("pcie_tbu"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}

	stats := reg.GetStats()
	if stats.TotalDomains != 3 {
		t.Errorf("TotalDomains = %d, want 3", stats.TotalDomains)
	}
	if stats.Enabled != 2 {
		t.Errorf("Enabled = %d, want 2", stats.Enabled)
	}
	if stats.ByMode["normal"] != 3 {
		t.Errorf("ByMode[normal] = %d, want 3", stats.ByMode["normal"])
	}
}

// Status reads race transitions in production: the API and MQTT bridge
// serve snapshots while commands run. Exercised under -race this fails
// if snapshot or GetStats read domain state without the rail lock.
func TestRegistry_ConcurrentStatusReads(t *testing.T) {
	reg, _ := newTestRegistry(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if _, err := reg.Disable("pcie_tbu"); err != nil {
				t.Errorf("Disable() error = %v", err)
				return
			}
			if _, err := reg.Enable("pcie_tbu"); err != nil {
				t.Errorf("Enable() error = %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		reg.StatusAll()
		reg.GetStats()
		if _, err := reg.Status("pcie_tbu"); err != nil {
			t.Fatalf("Status() error = %v", err)
		}
	}
}

func TestRegistry_HandleOverride(t *testing.T) {
	reg, _ := newTestRegistry(t)

	d, err := reg.Get("gpu_gx")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	reg.HandleOverride("domain.gpu_gx.skip_enable", "true", true)
	if !d.SkipEnable() {
		t.Error("skip_enable override not applied")
	}

	// Withdrawing the key restores the configured default.
	reg.HandleOverride("domain.gpu_gx.skip_enable", "", false)
	if d.SkipEnable() {
		t.Error("skip_enable not restored after override removal")
	}

	reg.HandleOverride("domain.gpu_gx.skip_enable", "banana", true)
	if d.SkipEnable() {
		t.Error("malformed override value applied")
	}

	// Unknown domains, fields, and foreign keys are ignored.
	reg.HandleOverride("domain.nope.skip_enable", "true", true)
	reg.HandleOverride("domain.gpu_gx.volts", "900", true)
	reg.HandleOverride("log.level", "debug", true)
}
