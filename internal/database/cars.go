package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbooker/internal/models"
)

func (db *DB) CreateCar(ctx context.Context, car *models.Car) error {
	query := `INSERT INTO cars (name, model, seats, hourly_rate, daily_rate, available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		car.Name, car.Model, car.Seats, car.HourlyRate, car.DailyRate, car.Available, now, now)
	if err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	car.ID = id
	car.CreatedAt = now
	car.UpdatedAt = now
	return nil
}

// UpsertCar writes a seed car under a fixed id, preserving the availability
// flag of an existing row so restarts do not clobber live reservations.
func (db *DB) UpsertCar(ctx context.Context, car *models.Car) error {
	query := `INSERT INTO cars (id, name, model, seats, hourly_rate, daily_rate, available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  model = excluded.model,
                  seats = excluded.seats,
                  hourly_rate = excluded.hourly_rate,
                  daily_rate = excluded.daily_rate,
                  updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		car.ID, car.Name, car.Model, car.Seats, car.HourlyRate, car.DailyRate, car.Available, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert car: %w", err)
	}
	return nil
}

func (db *DB) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	query := `SELECT id, name, model, seats, hourly_rate, daily_rate, available, created_at, updated_at
              FROM cars WHERE id = ?`

	var car models.Car
	err := db.QueryRowContext(ctx, query, id).Scan(
		&car.ID, &car.Name, &car.Model, &car.Seats,
		&car.HourlyRate, &car.DailyRate, &car.Available,
		&car.CreatedAt, &car.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return &car, nil
}

// ReserveCar flips the availability flag off as a single conditional write.
// Zero affected rows means some other booking holds the car; the caller must
// not fall back to a read-then-write sequence.
func (db *DB) ReserveCar(ctx context.Context, carID int64) error {
	return reserveCar(ctx, db.DB, carID)
}

// ReleaseCar returns the car to the available pool.
func (db *DB) ReleaseCar(ctx context.Context, carID int64) error {
	return releaseCar(ctx, db.DB, carID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func reserveCar(ctx context.Context, ex execer, carID int64) error {
	query := `UPDATE cars SET available = 0, updated_at = ? WHERE id = ? AND available = 1`
	result, err := ex.ExecContext(ctx, query, time.Now(), carID)
	if err != nil {
		return fmt.Errorf("failed to reserve car: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrCarUnavailable
	}
	return nil
}

func releaseCar(ctx context.Context, ex execer, carID int64) error {
	query := `UPDATE cars SET available = 1, updated_at = ? WHERE id = ?`
	if _, err := ex.ExecContext(ctx, query, time.Now(), carID); err != nil {
		return fmt.Errorf("failed to release car: %w", err)
	}
	return nil
}

func (db *DB) ListCars(ctx context.Context, params models.PageParams) ([]*models.Car, *models.PageMeta, error) {
	offset := params.Normalize()
	order := orderClause(params.SortBy, params.SortOrder, map[string]bool{
		"name": true, "hourly_rate": true, "daily_rate": true, "created_at": true,
	})

	query := fmt.Sprintf(`SELECT id, name, model, seats, hourly_rate, daily_rate, available, created_at, updated_at
              FROM cars %s LIMIT ? OFFSET ?`, order)

	rows, err := db.QueryContext(ctx, query, params.Limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	var cars []*models.Car
	for rows.Next() {
		car := &models.Car{}
		if err := rows.Scan(
			&car.ID, &car.Name, &car.Model, &car.Seats,
			&car.HourlyRate, &car.DailyRate, &car.Available,
			&car.CreatedAt, &car.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count cars: %w", err)
	}

	return cars, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}
