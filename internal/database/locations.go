package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carbooker/internal/models"
)

func (db *DB) CreateLocation(ctx context.Context, loc *models.Location) error {
	query := `INSERT INTO locations (name, address, city, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, loc.Name, loc.Address, loc.City, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateLocation
		}
		return fmt.Errorf("failed to create location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	loc.ID = id
	loc.CreatedAt = now
	loc.UpdatedAt = now
	return nil
}

func (db *DB) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	query := `SELECT id, name, address, city, created_at, updated_at FROM locations WHERE id = ?`

	var loc models.Location
	err := db.QueryRowContext(ctx, query, id).Scan(
		&loc.ID, &loc.Name, &loc.Address, &loc.City, &loc.CreatedAt, &loc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &loc, nil
}

func (db *DB) ListLocations(ctx context.Context, params models.PageParams, searchTerm string) ([]*models.Location, *models.PageMeta, error) {
	offset := params.Normalize()
	order := orderClause(params.SortBy, params.SortOrder, map[string]bool{
		"name": true, "city": true, "created_at": true,
	})

	where := ""
	args := []any{}
	if searchTerm != "" {
		where = `WHERE name LIKE ? COLLATE NOCASE OR address LIKE ? COLLATE NOCASE OR city LIKE ? COLLATE NOCASE`
		like := "%" + searchTerm + "%"
		args = append(args, like, like, like)
	}

	query := fmt.Sprintf(`SELECT id, name, address, city, created_at, updated_at FROM locations %s %s LIMIT ? OFFSET ?`, where, order)
	rows, err := db.QueryContext(ctx, query, append(args, params.Limit, offset)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		loc := &models.Location{}
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.City, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM locations %s`, where)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count locations: %w", err)
	}

	return locations, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}
