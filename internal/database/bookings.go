package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbooker/internal/models"
)

// CreateBooking reserves the car and inserts the booking in one transaction.
// The reserve is a conditional write; if the car is already held the whole
// transaction rolls back with ErrCarUnavailable.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := reserveCar(ctx, tx, booking.CarID); err != nil {
		return err
	}

	query := `INSERT INTO bookings (user_id, car_id, pickup_location_id, drop_location_id,
                  pick_up_time, drop_off_time, total_amount, amount_paid, payment_type, payment_status,
                  created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.UserID, booking.CarID, booking.PickupLocationID, booking.DropLocationID,
		booking.PickUpTime, booking.DropOffTime, booking.TotalAmount, booking.AmountPaid,
		booking.PaymentType, booking.PaymentStatus, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT id, user_id, car_id, pickup_location_id, drop_location_id,
                     pick_up_time, drop_off_time, total_amount, amount_paid, payment_type, payment_status,
                     created_at, updated_at
              FROM bookings WHERE id = ?`

	var b models.Booking
	err := db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.UserID, &b.CarID, &b.PickupLocationID, &b.DropLocationID,
		&b.PickUpTime, &b.DropOffTime, &b.TotalAmount, &b.AmountPaid, &b.PaymentType, &b.PaymentStatus,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

// GetBookingDetailed resolves the booking together with its referenced
// entities, matching the populated reads of the HTTP surface.
func (db *DB) GetBookingDetailed(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.User, err = db.GetUser(ctx, booking.UserID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if booking.Car, err = db.GetCar(ctx, booking.CarID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if booking.PickupLocation, err = db.GetLocation(ctx, booking.PickupLocationID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if booking.DropLocation, err = db.GetLocation(ctx, booking.DropLocationID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return booking, nil
}

// UpdateBooking persists the booking's mutable fields after the service has
// re-priced it.
func (db *DB) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	query := `UPDATE bookings SET pickup_location_id = ?, drop_location_id = ?,
                  pick_up_time = ?, drop_off_time = ?, total_amount = ?, updated_at = ?
              WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		booking.PickupLocationID, booking.DropLocationID,
		booking.PickUpTime, booking.DropOffTime, booking.TotalAmount, time.Now(), booking.ID)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBooking releases the car and removes the booking in one transaction.
// The release is part of the delete so the side effect cannot be lost.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var carID int64
	err = tx.QueryRowContext(ctx, `SELECT car_id FROM bookings WHERE id = ?`, id).Scan(&carID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get booking car: %w", err)
	}

	if err := releaseCar(ctx, tx, carID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	return tx.Commit()
}

func (db *DB) ListBookings(ctx context.Context, params models.PageParams, userID int64) ([]*models.Booking, *models.PageMeta, error) {
	offset := params.Normalize()
	order := orderClause(params.SortBy, params.SortOrder, map[string]bool{
		"pick_up_time": true, "total_amount": true, "created_at": true,
	})

	where := ""
	args := []any{}
	if userID > 0 {
		where = "WHERE user_id = ?"
		args = append(args, userID)
	}

	query := fmt.Sprintf(`SELECT id, user_id, car_id, pickup_location_id, drop_location_id,
                     pick_up_time, drop_off_time, total_amount, amount_paid, payment_type, payment_status,
                     created_at, updated_at
              FROM bookings %s %s LIMIT ? OFFSET ?`, where, order)

	rows, err := db.QueryContext(ctx, query, append(args, params.Limit, offset)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.CarID, &b.PickupLocationID, &b.DropLocationID,
			&b.PickUpTime, &b.DropOffTime, &b.TotalAmount, &b.AmountPaid, &b.PaymentType, &b.PaymentStatus,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM bookings %s`, where)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count bookings: %w", err)
	}

	return bookings, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}
