package database

import (
	"context"
	"fmt"
	"time"

	"carbooker/internal/models"
)

// AppendPaymentHistory inserts an audit record. History rows are append-only;
// there is no update or delete path.
func (db *DB) AppendPaymentHistory(ctx context.Context, entry *models.PaymentHistory) error {
	query := `INSERT INTO payment_history (payment_id, action, amount, status, details, performed_by, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		entry.PaymentID, entry.Action, entry.Amount, entry.Status,
		entry.Details, entry.PerformedBy, now)
	if err != nil {
		return fmt.Errorf("failed to append payment history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

type HistoryFilters struct {
	PaymentID int64
	Action    string
}

// ListPaymentHistory returns audit records newest first.
func (db *DB) ListPaymentHistory(ctx context.Context, params models.PageParams, filters HistoryFilters) ([]*models.PaymentHistory, *models.PageMeta, error) {
	offset := params.Normalize()

	where := "WHERE 1=1"
	args := []any{}
	if filters.PaymentID > 0 {
		where += " AND payment_id = ?"
		args = append(args, filters.PaymentID)
	}
	if filters.Action != "" {
		where += " AND action = ?"
		args = append(args, filters.Action)
	}

	query := fmt.Sprintf(`SELECT id, payment_id, action, amount, COALESCE(status, ''), COALESCE(details, ''), COALESCE(performed_by, ''), created_at
              FROM payment_history %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, where)

	rows, err := db.QueryContext(ctx, query, append(args, params.Limit, offset)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list payment history: %w", err)
	}
	defer rows.Close()

	var entries []*models.PaymentHistory
	for rows.Next() {
		e := &models.PaymentHistory{}
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.Action, &e.Amount, &e.Status,
			&e.Details, &e.PerformedBy, &e.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan payment history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM payment_history %s`, where)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count payment history: %w", err)
	}

	return entries, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}
