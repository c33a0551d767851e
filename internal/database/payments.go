package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carbooker/internal/models"
)

func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	details, err := marshalDetails(payment.Details)
	if err != nil {
		return err
	}

	query := `INSERT INTO payments (order_id, user_id, amount, currency, payment_method, status,
                  transaction_id, details, failure_reason, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		payment.OrderID, payment.UserID, payment.Amount, payment.Currency,
		payment.PaymentMethod, payment.Status, payment.TransactionID, details,
		payment.FailureReason, now, now)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	payment.ID = id
	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

func (db *DB) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	query := `SELECT id, order_id, user_id, amount, currency, payment_method, status,
                     COALESCE(transaction_id, ''), details, COALESCE(failure_reason, ''), created_at, updated_at
              FROM payments WHERE id = ?`

	var p models.Payment
	var details sql.NullString
	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.Status,
		&p.TransactionID, &details, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if p.Details, err = unmarshalDetails(details); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentDetailed resolves the payment with its order and user attached.
func (db *DB) GetPaymentDetailed(ctx context.Context, id int64) (*models.Payment, error) {
	payment, err := db.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Order, err = db.GetOrder(ctx, payment.OrderID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if payment.User, err = db.GetUser(ctx, payment.UserID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return payment, nil
}

// SetPaymentTransaction attaches the provider reference and raw response
// after a charge was initiated.
func (db *DB) SetPaymentTransaction(ctx context.Context, id int64, transactionID string, payload *models.ProviderPayload) error {
	details, err := marshalDetails(payload)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE payments SET transaction_id = ?, details = ?, updated_at = ? WHERE id = ?`,
		transactionID, details, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set payment transaction: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaymentFailed records a provider-side failure. Payments already settled
// are left untouched: success is terminal.
func (db *DB) MarkPaymentFailed(ctx context.Context, id int64, reason string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE payments SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ? AND status != ?`,
		models.PaymentFailed, reason, time.Now(), id, models.PaymentSuccess)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

// SettlePayment performs the success transition as a compare-and-swap: the
// payment row is only updated while its status is still non-success, and the
// order confirmation rides in the same transaction, itself guarded on the
// order not being paid yet. Losing either guard rolls the whole transaction
// back, so a second pending payment against an already-settled order can
// never reach success. The returned bool is false when another path (webhook
// vs. polling, or a sibling payment) already settled the order.
func (db *DB) SettlePayment(ctx context.Context, id int64, payload *models.ProviderPayload) (bool, error) {
	payment, err := db.GetPayment(ctx, id)
	if err != nil {
		return false, err
	}

	details, err := marshalDetails(payload)
	if err != nil {
		return false, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, details = ?, failure_reason = '', updated_at = ? WHERE id = ? AND status != ?`,
		models.PaymentSuccess, details, now, id, models.PaymentSuccess)
	if err != nil {
		return false, fmt.Errorf("failed to settle payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, status = ?, payment_method = ?, payment_id = ?, updated_at = ? WHERE id = ? AND payment_status != ?`,
		models.OrderPaymentPaid, models.OrderConfirmed, payment.PaymentMethod, id, now, payment.OrderID, models.OrderPaymentPaid)
	if err != nil {
		return false, fmt.Errorf("failed to confirm order: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		// A sibling payment already settled this order. The deferred
		// rollback undoes the payment update.
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return true, nil
}

// UpdatePayment applies a partial update to non-terminal fields. Status
// changes to success must go through SettlePayment instead.
func (db *DB) UpdatePayment(ctx context.Context, id int64, upd models.PaymentUpdate) error {
	payment, err := db.GetPayment(ctx, id)
	if err != nil {
		return err
	}

	status := payment.Status
	transactionID := payment.TransactionID
	payload := payment.Details
	if upd.Status != nil {
		status = *upd.Status
	}
	if upd.TransactionID != nil {
		transactionID = *upd.TransactionID
	}
	if upd.Details != nil {
		payload = upd.Details
	}

	details, err := marshalDetails(payload)
	if err != nil {
		return err
	}

	query := `UPDATE payments SET status = ?, transaction_id = ?, details = ?, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, status, transactionID, details, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

type PaymentFilters struct {
	UserID    int64
	OrderID   int64
	Status    string
	Method    string
	MinAmount float64
	MaxAmount float64
}

func (db *DB) ListPayments(ctx context.Context, params models.PageParams, filters PaymentFilters) ([]*models.Payment, *models.PageMeta, error) {
	offset := params.Normalize()
	order := orderClause(params.SortBy, params.SortOrder, map[string]bool{
		"amount": true, "status": true, "created_at": true,
	})

	where := "WHERE 1=1"
	args := []any{}
	if filters.UserID > 0 {
		where += " AND user_id = ?"
		args = append(args, filters.UserID)
	}
	if filters.OrderID > 0 {
		where += " AND order_id = ?"
		args = append(args, filters.OrderID)
	}
	if filters.Status != "" {
		where += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.Method != "" {
		where += " AND payment_method = ?"
		args = append(args, filters.Method)
	}
	if filters.MinAmount > 0 {
		where += " AND amount >= ?"
		args = append(args, filters.MinAmount)
	}
	if filters.MaxAmount > 0 {
		where += " AND amount <= ?"
		args = append(args, filters.MaxAmount)
	}

	query := fmt.Sprintf(`SELECT id, order_id, user_id, amount, currency, payment_method, status,
                     COALESCE(transaction_id, ''), details, COALESCE(failure_reason, ''), created_at, updated_at
              FROM payments %s %s LIMIT ? OFFSET ?`, where, order)

	rows, err := db.QueryContext(ctx, query, append(args, params.Limit, offset)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		var details sql.NullString
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.Status,
			&p.TransactionID, &details, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Details, err = unmarshalDetails(details); err != nil {
			return nil, nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM payments %s`, where)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count payments: %w", err)
	}

	return payments, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}

func marshalDetails(payload *models.ProviderPayload) (sql.NullString, error) {
	if payload == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal payment details: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalDetails(details sql.NullString) (*models.ProviderPayload, error) {
	if !details.Valid || details.String == "" {
		return nil, nil
	}
	var payload models.ProviderPayload
	if err := json.Unmarshal([]byte(details.String), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment details: %w", err)
	}
	return &payload, nil
}
