package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"datashield/internal/domain"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Columns     []string `json:"columns,omitempty"`
	Rows        [][]any  `json:"rows,omitempty"`
	DeniedItems []string `json:"denied_items,omitempty"`
}

// runQuery executes one SQL statement through the policy gateway as the
// authenticated principal. Denials come back as 200 with success=false; the
// decision is the payload, not a transport fault.
func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request) {
	principal, _ := domain.PrincipalFromContext(r.Context())

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.gateway.Run(r.Context(), principal.Name, req.SQL)
	if err != nil {
		h.logger.Error("gateway run failed", "principal", principal.Name, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Success:     result.Success,
		Message:     result.Message,
		Columns:     result.Columns,
		Rows:        result.Rows,
		DeniedItems: result.DeniedItems,
	})
}

type columnResponse struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Secured bool   `json:"secured"`
}

// listTables returns the user tables of the data engine.
func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

// tableSchema returns the columns of one table, flagging secured ones.
func (h *Handler) tableSchema(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	exists, err := h.store.TableExists(r.Context(), table)
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		writeError(w, domain.ErrNotFound("table %q does not exist", table))
		return
	}

	schema, err := h.store.GetSchema(r.Context(), table)
	if err != nil {
		writeError(w, err)
		return
	}

	columns := make([]columnResponse, len(schema))
	for i, c := range schema {
		secured, err := h.vault.IsSecured(r.Context(), table, c.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		columns[i] = columnResponse{Name: c.Name, Type: c.Type, Secured: secured}
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "columns": columns})
}
