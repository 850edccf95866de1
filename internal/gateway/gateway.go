// Package gateway orchestrates the policy-enforcing query path: extract the
// references a statement touches, authorize them, execute, and transform the
// result so every viewer sees exactly what their grants allow.
package gateway

import (
	"context"
	"fmt"

	"datashield/internal/domain"
	"datashield/internal/fieldcipher"
	"datashield/internal/keyvault"
	"datashield/internal/policy"
	"datashield/internal/sqlscan"
)

// decryptionSentinel replaces a cell whose decryption failed. One broken cell
// never aborts the rest of the result set.
const decryptionSentinel = "[decryption error]"

// Gateway runs SQL on behalf of principals. It owns no persistent state;
// grants and keys are read fresh per call so every query is evaluated against
// current policy.
type Gateway struct {
	policy *policy.Engine
	vault  *keyvault.Vault
	store  domain.Datastore
	audits domain.AuditRepository
}

// New creates a Gateway.
func New(engine *policy.Engine, vault *keyvault.Vault, store domain.Datastore, audits domain.AuditRepository) *Gateway {
	return &Gateway{policy: engine, vault: vault, store: store, audits: audits}
}

// Run executes one SQL statement as the named principal. Parse failures and
// denials come back as unsuccessful results, never as errors; the error
// return is reserved for infrastructure faults.
func (g *Gateway) Run(ctx context.Context, principalName, sqlText string) (*domain.QueryResult, error) {
	refs, err := sqlscan.Extract(sqlText)
	if err != nil {
		result := &domain.QueryResult{
			Success: false,
			Message: fmt.Sprintf("failed to parse query: %v", err),
		}
		g.logAudit(ctx, principalName, sqlText, nil, nil, domain.AuditStatusFailed, result.Message)
		return result, nil
	}

	columns := refs.Columns
	if refs.Wildcard {
		columns, err = g.expandWildcard(ctx, refs)
		if err != nil {
			return nil, err
		}
	}

	decision, err := g.policy.Authorize(ctx, principalName, refs.Tables, columns)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		result := &domain.QueryResult{
			Success:     false,
			Message:     decision.Reason,
			DeniedItems: decision.DeniedItems,
		}
		g.logAudit(ctx, principalName, sqlText, refs.Tables, columns, domain.AuditStatusDenied, decision.Reason)
		return result, nil
	}

	rs, err := g.store.Execute(ctx, sqlText)
	if err != nil {
		result := &domain.QueryResult{
			Success: false,
			Message: fmt.Sprintf("query execution failed: %v", err),
		}
		g.logAudit(ctx, principalName, sqlText, refs.Tables, columns, domain.AuditStatusFailed, result.Message)
		return result, nil
	}

	if err := g.transform(ctx, principalName, refs.Tables, rs); err != nil {
		return nil, err
	}

	message := "query executed successfully, no results"
	if len(rs.Rows) > 0 {
		message = fmt.Sprintf("query executed successfully, %d rows returned", len(rs.Rows))
	}
	g.logAudit(ctx, principalName, sqlText, refs.Tables, columns, domain.AuditStatusSuccess, "")

	return &domain.QueryResult{
		Success: true,
		Message: message,
		Columns: rs.Columns,
		Rows:    rs.Rows,
	}, nil
}

// expandWildcard replaces a * select list with the concrete columns of every
// referenced table. Missing tables expand to nothing; authorization reports
// them as denial items.
func (g *Gateway) expandWildcard(ctx context.Context, refs *domain.QueryReferences) ([]string, error) {
	var columns []string
	for _, table := range refs.Tables {
		exists, err := g.store.TableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		schema, err := g.store.GetSchema(ctx, table)
		if err != nil {
			return nil, err
		}
		for _, col := range schema {
			columns = appendUnique(columns, col.Name)
		}
	}
	for _, col := range refs.Columns {
		columns = appendUnique(columns, col)
	}
	return columns, nil
}

// columnPlan is the per-column transformation decided once per Run and then
// applied to every row.
type columnPlan struct {
	secured bool
	granted bool
	key     []byte
	keyBad  bool
}

// transform rewrites secured cells in place: decrypt for principals holding a
// column or table grant, mask for everyone else. Row and column order are
// untouched.
func (g *Gateway) transform(ctx context.Context, principalName string, tables []string, rs *domain.ResultSet) error {
	if len(rs.Rows) == 0 {
		return nil
	}

	plans := make([]columnPlan, len(rs.Columns))
	for i, col := range rs.Columns {
		plan, err := g.planColumn(ctx, principalName, tables, col)
		if err != nil {
			return err
		}
		plans[i] = plan
	}

	for _, row := range rs.Rows {
		for i, plan := range plans {
			if !plan.secured || row[i] == nil {
				continue
			}
			cell := fmt.Sprint(row[i])
			switch {
			case !plan.granted:
				row[i] = fieldcipher.Mask(cell, fieldcipher.MaskPartial)
			case plan.keyBad:
				row[i] = decryptionSentinel
			default:
				plaintext, err := fieldcipher.Decrypt(cell, plan.key)
				if err != nil {
					row[i] = decryptionSentinel
				} else {
					row[i] = plaintext
				}
			}
		}
	}
	return nil
}

// planColumn attributes a result column to the first referenced table that
// has it secured. The first-table rule is a best-effort heuristic for
// multi-table queries; exact provenance would need the datastore's help.
func (g *Gateway) planColumn(ctx context.Context, principalName string, tables []string, column string) (columnPlan, error) {
	for _, table := range tables {
		secured, err := g.vault.IsSecured(ctx, table, column)
		if err != nil {
			return columnPlan{}, err
		}
		if !secured {
			continue
		}

		granted, err := g.policy.HasColumnAccess(ctx, principalName, table, column)
		if err != nil {
			return columnPlan{}, err
		}
		plan := columnPlan{secured: true, granted: granted}
		if granted {
			key, err := g.vault.UnwrapKey(ctx, table, column)
			if err != nil {
				// Unwrap failures degrade to the sentinel per cell rather
				// than aborting the result set.
				plan.keyBad = true
			} else {
				plan.key = key
			}
		}
		return plan, nil
	}
	return columnPlan{}, nil
}

// logAudit records the outcome of a Run. Best-effort: an audit write failure
// never fails the query itself.
func (g *Gateway) logAudit(ctx context.Context, principal, sqlText string, tables, columns []string, status, reason string) {
	_ = g.audits.Insert(ctx, &domain.AuditEntry{
		PrincipalName: principal,
		Action:        "query",
		QueryText:     sqlText,
		Tables:        tables,
		Columns:       columns,
		Status:        status,
		Reason:        reason,
	})
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
