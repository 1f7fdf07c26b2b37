package platform

import (
	"context"
	"time"
)

// TransitionRecord is a persisted transition event.
//
// The history table is the local audit trail of every power transition,
// it stays queryable even when the time-series database is down.
type TransitionRecord struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// EventID is the transition event identifier.
	EventID string `json:"event_id"`

	// Domain is the power domain name.
	Domain string `json:"domain"`

	// Operation is the transition that ran (enable, disable, set_mode).
	Operation string `json:"operation"`

	// Mode is the target mode for set_mode rows, empty otherwise.
	Mode string `json:"mode,omitempty"`

	// Outcome is ok or error.
	Outcome string `json:"outcome"`

	// Error carries the error text for failed transitions.
	Error string `json:"error,omitempty"`

	// DurationUS is the transition duration in microseconds.
	DurationUS int64 `json:"duration_us"`

	// PollReads is the status read count of the transition's final poll.
	PollReads int `json:"poll_reads"`

	// CreatedAt is the timestamp of the transition (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves transition history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// Record persists one transition event.
	Record(ctx context.Context, event Event) error

	// GetHistory returns recent transitions for the domain, newest
	// first. The limit may be clamped by the implementation.
	GetHistory(ctx context.Context, domain string, limit int) ([]TransitionRecord, error)
}

// historyWriteTimeout bounds the synchronous history insert performed
// on the transitioning goroutine.
const historyWriteTimeout = 5 * time.Second

// HistoryRecorder adapts a HistoryRepository to the Observer interface.
// Persistence failures are logged, never propagated: history must not
// block power transitions.
type HistoryRecorder struct {
	repo   HistoryRepository
	logger Logger
}

// NewHistoryRecorder creates an observer that records every transition.
func NewHistoryRecorder(repo HistoryRepository, logger Logger) *HistoryRecorder {
	return &HistoryRecorder{repo: repo, logger: logger}
}

// ObserveTransition implements Observer.
func (h *HistoryRecorder) ObserveTransition(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := h.repo.Record(ctx, event); err != nil {
		h.logger.Error("recording transition history",
			"domain", event.Domain, "operation", string(event.Operation), "error", err)
	}
}
