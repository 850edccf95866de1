package api

import (
	"net/http"
	"strconv"
	"time"

	"datashield/internal/domain"
)

type auditEntryResponse struct {
	ID        string    `json:"id"`
	Principal string    `json:"principal"`
	Action    string    `json:"action"`
	QueryText string    `json:"query_text,omitempty"`
	Tables    []string  `json:"tables,omitempty"`
	Columns   []string  `json:"columns,omitempty"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// listAudit returns audit entries, newest first, filtered by the optional
// principal, status, since, limit, and offset query parameters.
func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = auditEntryResponse{
			ID:        e.ID,
			Principal: e.PrincipalName,
			Action:    e.Action,
			QueryText: e.QueryText,
			Tables:    e.Tables,
			Columns:   e.Columns,
			Status:    e.Status,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// exportAudit streams the filtered audit trail as a CSV download.
func (h *Handler) exportAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.csv"`)
	if err := h.audit.ExportCSV(r.Context(), w, filter); err != nil {
		h.logger.Error("audit export failed", "error", err)
	}
}

func auditFilterFromQuery(r *http.Request) (domain.AuditFilter, error) {
	q := r.URL.Query()
	filter := domain.AuditFilter{}

	if principal := q.Get("principal"); principal != "" {
		filter.PrincipalName = &principal
	}
	if status := q.Get("status"); status != "" {
		switch status {
		case domain.AuditStatusSuccess, domain.AuditStatusDenied, domain.AuditStatusFailed:
			filter.Status = &status
		default:
			return filter, domain.ErrValidation("invalid status %q", status)
		}
	}
	if since := q.Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return filter, domain.ErrValidation("invalid since timestamp: %v", err)
		}
		filter.Since = &ts
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return filter, domain.ErrValidation("invalid limit %q", limit)
		}
		filter.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return filter, domain.ErrValidation("invalid offset %q", offset)
		}
		filter.Offset = n
	}
	return filter, nil
}
