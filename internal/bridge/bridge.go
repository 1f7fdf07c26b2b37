package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/railgate/railgate-core/internal/audit"
	"github.com/railgate/railgate-core/internal/infrastructure/mqtt"
	"github.com/railgate/railgate-core/internal/platform"
	"github.com/railgate/railgate-core/internal/powerdomain"
)

// auditWriteTimeout bounds the audit insert performed per command.
const auditWriteTimeout = 5 * time.Second

// Command actions accepted on the command topics.
const (
	actionEnable  = "enable"
	actionDisable = "disable"
	actionSetMode = "set_mode"
)

// Bridge connects the platform registry to the MQTT surface. It
// subscribes to the per-domain command topics, publishes retained state
// snapshots, and streams transition events.
//
// The bridge also implements platform.Observer so the registry can hand
// it every completed transition, including those triggered through the
// REST API.
//
// Thread Safety: all methods are safe for concurrent use.
type Bridge struct {
	registry Registry
	client   MQTTClient
	auditor  audit.Repository // optional, nil disables audit records
	qos      byte

	logger   Logger
	stopOnce sync.Once
}

// Registry is the subset of platform registry operations the bridge
// drives. Satisfied by *platform.Registry.
type Registry interface {
	Enable(name string) (platform.Event, error)
	Disable(name string) (platform.Event, error)
	SetMode(name string, mode powerdomain.Mode) (platform.Event, error)
	Status(name string) (platform.Status, error)
	StatusAll() []platform.Status
}

// MQTTClient is the interface for MQTT operations, satisfied by
// *mqtt.Client. Kept narrow so tests can run against a mock.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Logger is the logging interface used by the bridge.
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

// Command is the payload accepted on railgate/command/domain/<name>.
type Command struct {
	// Action is enable, disable, or set_mode.
	Action string `json:"action"`

	// Mode is the target mode for set_mode commands (normal, fast).
	Mode string `json:"mode,omitempty"`

	// Actor optionally identifies who issued the command.
	Actor string `json:"actor,omitempty"`

	// RequestID optionally correlates the command with its event.
	RequestID string `json:"request_id,omitempty"`
}

// StatePayload is the retained snapshot published on
// railgate/state/domain/<name>.
type StatePayload struct {
	Name       string    `json:"name"`
	Enabled    bool      `json:"enabled"`
	Mode       string    `json:"mode"`
	SkipEnable bool      `json:"skip_enable"`
	Timestamp  time.Time `json:"timestamp"`
}

// New creates a bridge. The auditor may be nil when audit persistence
// is disabled.
func New(registry Registry, client MQTTClient, auditor audit.Repository, qos byte) *Bridge {
	return &Bridge{
		registry: registry,
		client:   client,
		auditor:  auditor,
		qos:      qos,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to the command topics and publishes the initial
// retained state for every domain.
func (b *Bridge) Start() error {
	topic := mqtt.Topics{}.AllDomainCommands()
	if err := b.client.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	b.PublishAllStates()
	b.logger.Info("mqtt bridge started", "commands", topic)
	return nil
}

// Stop is idempotent. Subscriptions die with the MQTT connection, which
// the daemon closes after the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.logger.Info("mqtt bridge stopped")
	})
}

// ObserveTransition implements platform.Observer. Every completed
// transition is streamed on the event topic and the domain's retained
// state is refreshed.
func (b *Bridge) ObserveTransition(event platform.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("marshalling transition event", "domain", event.Domain, "error", err)
		return
	}
	if err := b.client.Publish(mqtt.Topics{}.TransitionEvent(), payload, b.qos, false); err != nil {
		b.logger.Warn("publishing transition event", "domain", event.Domain, "error", err)
	}

	b.publishState(event.Domain)
}

// PublishAllStates publishes a retained state snapshot for every
// domain. Called at startup and on MQTT reconnect.
func (b *Bridge) PublishAllStates() {
	for _, status := range b.registry.StatusAll() {
		b.publishStatus(status)
	}
}

func (b *Bridge) publishState(name string) {
	status, err := b.registry.Status(name)
	if err != nil {
		b.logger.Warn("reading domain status for publish", "domain", name, "error", err)
		return
	}
	b.publishStatus(status)
}

func (b *Bridge) publishStatus(status platform.Status) {
	payload, err := json.Marshal(StatePayload{
		Name:       status.Name,
		Enabled:    status.Enabled,
		Mode:       status.Mode,
		SkipEnable: status.SkipEnable,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		b.logger.Error("marshalling domain state", "domain", status.Name, "error", err)
		return
	}

	topic := mqtt.Topics{}.DomainState(status.Name)
	if err := b.client.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Warn("publishing domain state", "domain", status.Name, "error", err)
	}
}

// handleCommand processes one inbound command message. The returned
// error is logged by the MQTT client's handler wrapper.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	name, ok := mqtt.Topics{}.CommandDomain(topic)
	if !ok {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parsing command for %s: %w", name, err)
	}

	b.logger.Debug("command received", "domain", name, "action", cmd.Action)

	var (
		event platform.Event
		err   error
	)
	switch cmd.Action {
	case actionEnable:
		event, err = b.registry.Enable(name)
	case actionDisable:
		event, err = b.registry.Disable(name)
	case actionSetMode:
		var mode powerdomain.Mode
		mode, err = powerdomain.ParseMode(cmd.Mode)
		if err == nil {
			event, err = b.registry.SetMode(name, mode)
		}
	default:
		return fmt.Errorf("unknown command action %q for %s", cmd.Action, name)
	}

	b.recordAudit(name, cmd, event, err)

	if err != nil {
		return fmt.Errorf("command %s on %s: %w", cmd.Action, name, err)
	}
	return nil
}

// recordAudit writes one audit row for an executed command. Failures
// are logged, a broken audit store must not reject commands.
func (b *Bridge) recordAudit(name string, cmd Command, event platform.Event, opErr error) {
	if b.auditor == nil {
		return
	}

	outcome := string(platform.OutcomeOK)
	if opErr != nil {
		outcome = string(platform.OutcomeError)
	}

	var details map[string]any
	if cmd.RequestID != "" || event.ID != "" {
		details = map[string]any{}
		if cmd.RequestID != "" {
			details["request_id"] = cmd.RequestID
		}
		if event.ID != "" {
			details["event_id"] = event.ID
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	entry := &audit.AuditLog{
		Action:  cmd.Action,
		Domain:  name,
		Actor:   cmd.Actor,
		Source:  audit.SourceMQTT,
		Outcome: outcome,
		Details: details,
	}
	if err := b.auditor.Create(ctx, entry); err != nil {
		b.logger.Error("writing audit entry", "domain", name, "action", cmd.Action, "error", err)
	}
}
