package api

import (
	"net/http"
	"strconv"

	"github.com/railgate/railgate-core/internal/audit"
)

// handleListAudit returns audit log entries matching the query filters.
//
// Query parameters: action, domain, source, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "audit store not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Domain: q.Get("domain"),
		Source: q.Get("source"),
	}
	if len(filter.Action) > maxNameLen || len(filter.Domain) > maxNameLen || len(filter.Source) > maxNameLen {
		writeBadRequest(w, "filter value too long")
		return
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("querying audit logs", "error", err)
		writeInternalError(w, "failed to query audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
