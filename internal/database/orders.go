package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbooker/internal/models"
)

func (db *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `INSERT INTO orders (package_id, user_id, car_id, pickup_date, drop_date,
                  total_amount, discounted_amount, status, payment_status, payment_method, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		order.PackageID, order.UserID, order.CarID, order.PickupDate, order.DropDate,
		order.TotalAmount, order.DiscountedAmount, order.Status, order.PaymentStatus,
		order.PaymentMethod, now, now)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	order.ID = id
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

func (db *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT id, package_id, user_id, car_id, pickup_date, drop_date,
                     total_amount, discounted_amount, status, payment_status,
                     COALESCE(payment_method, ''), payment_id, created_at, updated_at
              FROM orders WHERE id = ?`

	var o models.Order
	err := db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.PackageID, &o.UserID, &o.CarID, &o.PickupDate, &o.DropDate,
		&o.TotalAmount, &o.DiscountedAmount, &o.Status, &o.PaymentStatus,
		&o.PaymentMethod, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// GetOrderDetailed resolves the order with its package, user and car attached.
func (db *DB) GetOrderDetailed(ctx context.Context, id int64) (*models.Order, error) {
	order, err := db.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Package, err = db.GetPackage(ctx, order.PackageID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if order.User, err = db.GetUser(ctx, order.UserID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if order.Car, err = db.GetCar(ctx, order.CarID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return order, nil
}

// UpdateOrder applies a partial update. Interval validation happens in the
// service; this write is unconditional on dates and discount only.
func (db *DB) UpdateOrder(ctx context.Context, id int64, upd models.OrderUpdate) error {
	order, err := db.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	pickup := order.PickupDate
	drop := order.DropDate
	discounted := order.DiscountedAmount
	status := order.Status
	if upd.PickupDate != nil {
		pickup = *upd.PickupDate
	}
	if upd.DropDate != nil {
		drop = *upd.DropDate
	}
	if upd.DiscountedAmount != nil {
		discounted = *upd.DiscountedAmount
	}
	if upd.Status != nil {
		status = *upd.Status
	}

	query := `UPDATE orders SET pickup_date = ?, drop_date = ?, discounted_amount = ?, status = ?, updated_at = ?
              WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, pickup, drop, discounted, status, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (db *DB) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListOrders(ctx context.Context, params models.PageParams, userID int64, status string) ([]*models.Order, *models.PageMeta, error) {
	offset := params.Normalize()
	order := orderClause(params.SortBy, params.SortOrder, map[string]bool{
		"pickup_date": true, "total_amount": true, "status": true, "created_at": true,
	})

	where := "WHERE 1=1"
	args := []any{}
	if userID > 0 {
		where += " AND user_id = ?"
		args = append(args, userID)
	}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	query := fmt.Sprintf(`SELECT id, package_id, user_id, car_id, pickup_date, drop_date,
                     total_amount, discounted_amount, status, payment_status,
                     COALESCE(payment_method, ''), payment_id, created_at, updated_at
              FROM orders %s %s LIMIT ? OFFSET ?`, where, order)

	rows, err := db.QueryContext(ctx, query, append(args, params.Limit, offset)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o := &models.Order{}
		if err := rows.Scan(
			&o.ID, &o.PackageID, &o.UserID, &o.CarID, &o.PickupDate, &o.DropDate,
			&o.TotalAmount, &o.DiscountedAmount, &o.Status, &o.PaymentStatus,
			&o.PaymentMethod, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders %s`, where)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count orders: %w", err)
	}

	return orders, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}
