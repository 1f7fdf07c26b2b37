package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/railgate/railgate-core/internal/audit"
	"github.com/railgate/railgate-core/internal/platform"
	"github.com/railgate/railgate-core/internal/powerdomain"
)

const (
	// maxNameLen bounds path and query parameters.
	maxNameLen = 128

	// auditWriteTimeout bounds the audit insert performed per request.
	auditWriteTimeout = 5 * time.Second
)

// handleListDomains returns a snapshot of every domain.
func (s *Server) handleListDomains(w http.ResponseWriter, _ *http.Request) {
	domains := s.registry.StatusAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"domains": domains,
		"count":   len(domains),
	})
}

// handleGetDomain returns the snapshot of one domain.
func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	name, ok := domainName(w, r)
	if !ok {
		return
	}

	status, err := s.registry.Status(name)
	if err != nil {
		writeNotFound(w, "domain not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleEnableDomain powers up a domain.
func (s *Server) handleEnableDomain(w http.ResponseWriter, r *http.Request) {
	s.runTransition(w, r, audit.ActionEnable, func(name string) (platform.Event, error) {
		return s.registry.Enable(name)
	})
}

// handleDisableDomain collapses a domain.
func (s *Server) handleDisableDomain(w http.ResponseWriter, r *http.Request) {
	s.runTransition(w, r, audit.ActionDisable, func(name string) (platform.Event, error) {
		return s.registry.Disable(name)
	})
}

// setModeRequest is the body for PUT /domains/{name}/mode.
type setModeRequest struct {
	Mode string `json:"mode"`
}

// handleSetMode switches a domain's control mode.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	mode, err := powerdomain.ParseMode(req.Mode)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}

	s.runTransition(w, r, audit.ActionSetMode, func(name string) (platform.Event, error) {
		return s.registry.SetMode(name, mode)
	})
}

// runTransition executes one registry transition and writes the
// resulting event, mapping domain errors onto HTTP statuses.
func (s *Server) runTransition(w http.ResponseWriter, r *http.Request, action string, fn func(name string) (platform.Event, error)) {
	name, ok := domainName(w, r)
	if !ok {
		return
	}

	event, err := fn(name)
	s.recordAudit(r, action, name, event, err)

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, event)
	case errors.Is(err, platform.ErrDomainNotFound):
		writeNotFound(w, "domain not found")
	case errors.Is(err, powerdomain.ErrInvalidState),
		errors.Is(err, powerdomain.ErrParentUnavailable):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		s.logger.Error("transition failed", "domain", name, "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// handleGetRegisters returns the diagnostic register dump of a domain.
func (s *Server) handleGetRegisters(w http.ResponseWriter, r *http.Request) {
	name, ok := domainName(w, r)
	if !ok {
		return
	}

	values, err := s.registry.Registers(name)
	if err != nil {
		if errors.Is(err, platform.ErrDomainNotFound) {
			writeNotFound(w, "domain not found")
			return
		}
		writeInternalError(w, "failed to read registers")
		return
	}

	registers := make([]string, len(values))
	for i, v := range values {
		registers[i] = fmt.Sprintf("0x%08x", v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"domain":    name,
		"registers": registers,
	})
}

// handleGetHistory returns recent transitions for a domain.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "history store not configured")
		return
	}

	name, ok := domainName(w, r)
	if !ok {
		return
	}
	if _, err := s.registry.Status(name); err != nil {
		writeNotFound(w, "domain not found")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	records, err := s.history.GetHistory(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("querying transition history", "domain", name, "error", err)
		writeInternalError(w, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"domain":      name,
		"transitions": records,
		"count":       len(records),
	})
}

// domainName extracts and validates the {name} path parameter.
func domainName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxNameLen {
		writeBadRequest(w, "invalid domain name")
		return "", false
	}
	return name, true
}

// parseLimit parses an optional limit query parameter. Zero means
// "use the store default".
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return limit, nil
}

// recordAudit writes one audit row for a mutating request. Failures are
// logged, never surfaced to the caller.
func (s *Server) recordAudit(r *http.Request, action, name string, event platform.Event, opErr error) {
	if s.audit == nil {
		return
	}

	outcome := string(platform.OutcomeOK)
	if opErr != nil {
		outcome = string(platform.OutcomeError)
	}

	details := map[string]any{}
	if id, ok := r.Context().Value(ctxKeyRequestID).(string); ok && id != "" {
		details["request_id"] = id
	}
	if event.ID != "" {
		details["event_id"] = event.ID
	}
	if len(details) == 0 {
		details = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	entry := &audit.AuditLog{
		Action:  action,
		Domain:  name,
		Actor:   r.Header.Get("X-Actor"),
		Source:  audit.SourceAPI,
		Outcome: outcome,
		Details: details,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error("writing audit entry", "domain", name, "action", action, "error", err)
	}
}
