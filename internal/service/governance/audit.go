// Package governance exposes the compliance trail: listing, formatting,
// exporting, and pruning audit entries.
package governance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"datashield/internal/domain"
)

// AuditService reads and maintains the audit log. Writing entries happens at
// the point of action (gateway, identity, policy surfaces); this service is
// the reporting side.
type AuditService struct {
	audits domain.AuditRepository
}

// NewAuditService creates an AuditService.
func NewAuditService(audits domain.AuditRepository) *AuditService {
	return &AuditService{audits: audits}
}

// List returns audit entries matching the filter, newest first.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	return s.audits.List(ctx, filter)
}

// ListDenied returns only denied entries, newest first.
func (s *AuditService) ListDenied(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	denied := domain.AuditStatusDenied
	return s.audits.List(ctx, domain.AuditFilter{Status: &denied, Limit: limit})
}

// Format renders entries as readable lines for terminal display.
func (s *AuditService) Format(entries []domain.AuditEntry) string {
	if len(entries) == 0 {
		return "no audit entries found"
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s | %s | %s",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.PrincipalName, e.Action, e.Status)
		if len(e.Tables) > 0 {
			fmt.Fprintf(&b, " | tables: %s", strings.Join(e.Tables, ","))
		}
		if len(e.Columns) > 0 {
			fmt.Fprintf(&b, " | columns: %s", strings.Join(e.Columns, ","))
		}
		if e.Reason != "" {
			fmt.Fprintf(&b, " | reason: %s", e.Reason)
		}
	}
	return b.String()
}

// ExportCSV writes entries matching the filter to w as CSV with a header row.
func (s *AuditService) ExportCSV(ctx context.Context, w io.Writer, filter domain.AuditFilter) error {
	entries, err := s.audits.List(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "created_at", "principal", "action", "query_text",
		"tables_accessed", "columns_accessed", "status", "reason"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.PrincipalName,
			e.Action,
			e.QueryText,
			strings.Join(e.Tables, ","),
			strings.Join(e.Columns, ","),
			e.Status,
			e.Reason,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Prune deletes entries older than retentionDays and returns the count.
func (s *AuditService) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, domain.ErrValidation("retention days must be positive")
	}
	return s.audits.DeleteOlderThan(ctx, retentionDays)
}
