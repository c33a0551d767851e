package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbooker/internal/models"
)

// CreatePackage inserts a package after verifying no active package for the
// same car overlaps the candidate date range. Check and insert run in one
// transaction; concurrent creates for the same car can still race between
// transactions, which is an accepted narrow window (no distributed locking).
func (db *DB) CreatePackage(ctx context.Context, pkg *models.Package) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	overlaps, err := packageOverlaps(ctx, tx, pkg.CarID, pkg.StartDate, pkg.EndDate, 0)
	if err != nil {
		return err
	}
	if overlaps {
		return ErrPackageOverlap
	}

	query := `INSERT INTO packages (name, pickup_location_id, drop_location_id, car_id,
                  base_price, discounted_price, start_date, end_date, available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		pkg.Name, pkg.PickupLocationID, pkg.DropLocationID, pkg.CarID,
		pkg.BasePrice, pkg.DiscountedPrice, pkg.StartDate, pkg.EndDate, pkg.Available, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert package: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	pkg.ID = id
	pkg.CreatedAt = now
	pkg.UpdatedAt = now

	return tx.Commit()
}

// UpdatePackageDates moves a package's validity window, re-running the
// overlap check against every other active package for the car.
func (db *DB) UpdatePackageDates(ctx context.Context, id int64, start, end time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var carID int64
	err = tx.QueryRowContext(ctx, `SELECT car_id FROM packages WHERE id = ?`, id).Scan(&carID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get package car: %w", err)
	}

	overlaps, err := packageOverlaps(ctx, tx, carID, start, end, id)
	if err != nil {
		return err
	}
	if overlaps {
		return ErrPackageOverlap
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE packages SET start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`,
		start, end, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update package dates: %w", err)
	}

	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// packageOverlaps applies the inclusive interval test: an existing range
// [s,e] collides with the candidate [start,end] when s <= end AND e >= start.
func packageOverlaps(ctx context.Context, q queryer, carID int64, start, end time.Time, excludeID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM packages
              WHERE car_id = ? AND available = 1 AND id != ?
              AND start_date <= ? AND end_date >= ?`
	var count int
	if err := q.QueryRowContext(ctx, query, carID, excludeID, end, start).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check package overlap: %w", err)
	}
	return count > 0, nil
}

func (db *DB) GetPackage(ctx context.Context, id int64) (*models.Package, error) {
	query := `SELECT id, name, pickup_location_id, drop_location_id, car_id,
                     base_price, discounted_price, start_date, end_date, available, created_at, updated_at
              FROM packages WHERE id = ?`

	var pkg models.Package
	err := db.QueryRowContext(ctx, query, id).Scan(
		&pkg.ID, &pkg.Name, &pkg.PickupLocationID, &pkg.DropLocationID, &pkg.CarID,
		&pkg.BasePrice, &pkg.DiscountedPrice, &pkg.StartDate, &pkg.EndDate, &pkg.Available,
		&pkg.CreatedAt, &pkg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return &pkg, nil
}

func (db *DB) DeactivatePackage(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE packages SET available = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate package: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListPackages(ctx context.Context, params models.PageParams, carID int64) ([]*models.Package, *models.PageMeta, error) {
	offset := params.Normalize()
	order := orderClause(params.SortBy, params.SortOrder, map[string]bool{
		"name": true, "base_price": true, "start_date": true, "created_at": true,
	})

	where := ""
	args := []any{}
	if carID > 0 {
		where = "WHERE car_id = ?"
		args = append(args, carID)
	}

	query := fmt.Sprintf(`SELECT id, name, pickup_location_id, drop_location_id, car_id,
                     base_price, discounted_price, start_date, end_date, available, created_at, updated_at
              FROM packages %s %s LIMIT ? OFFSET ?`, where, order)

	rows, err := db.QueryContext(ctx, query, append(args, params.Limit, offset)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []*models.Package
	for rows.Next() {
		pkg := &models.Package{}
		if err := rows.Scan(
			&pkg.ID, &pkg.Name, &pkg.PickupLocationID, &pkg.DropLocationID, &pkg.CarID,
			&pkg.BasePrice, &pkg.DiscountedPrice, &pkg.StartDate, &pkg.EndDate, &pkg.Available,
			&pkg.CreatedAt, &pkg.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM packages %s`, where)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count packages: %w", err)
	}

	return packages, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}
