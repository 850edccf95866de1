package api

import (
	"net/http"
	"strings"

	"datashield/internal/domain"
	"datashield/internal/ingest"
)

const maxUploadBytes = 64 << 20 // 64 MiB

type ingestResponse struct {
	Table        string `json:"table"`
	RowsInserted int    `json:"rows_inserted"`
	RowsSkipped  int    `json:"rows_skipped"`
	Columns      int    `json:"columns"`
}

// ingestCSV loads an uploaded CSV file into a new or existing table.
// Multipart form fields: file (the CSV), table, drop_existing (optional),
// encrypt_columns (optional, comma-separated cleaned column names).
func (h *Handler) ingestCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, domain.ErrValidation("invalid multipart form: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.ErrValidation("missing file field"))
		return
	}
	defer file.Close() //nolint:errcheck

	opts := ingest.Options{
		TableName:    r.FormValue("table"),
		DropExisting: r.FormValue("drop_existing") == "true",
	}
	if cols := r.FormValue("encrypt_columns"); cols != "" {
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				opts.EncryptColumns = append(opts.EncryptColumns, c)
			}
		}
	}

	result, err := h.loader.Load(r.Context(), file, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := domain.PrincipalFromContext(r.Context())
	h.logger.Info("csv ingested",
		"principal", principal.Name,
		"table", result.TableName,
		"rows", result.RowsInserted,
		"skipped", result.RowsSkipped)

	writeJSON(w, http.StatusCreated, ingestResponse{
		Table:        result.TableName,
		RowsInserted: result.RowsInserted,
		RowsSkipped:  result.RowsSkipped,
		Columns:      len(result.Columns),
	})
}
