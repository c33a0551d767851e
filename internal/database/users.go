package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbooker/internal/models"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, email, phone, role, telegram_chat_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if user.Role == "" {
		user.Role = "user"
	}
	result, err := db.ExecContext(ctx, query,
		user.Name, user.Email, user.Phone, user.Role, user.TelegramChatID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, email, phone, role, telegram_chat_id, created_at, updated_at
              FROM users WHERE id = ?`

	var user models.User
	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role,
		&user.TelegramChatID, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (db *DB) ListUsers(ctx context.Context, params models.PageParams) ([]*models.User, *models.PageMeta, error) {
	offset := params.Normalize()
	order := orderClause(params.SortBy, params.SortOrder, map[string]bool{
		"name": true, "email": true, "created_at": true,
	})

	query := fmt.Sprintf(`SELECT id, name, email, phone, role, telegram_chat_id, created_at, updated_at
              FROM users %s LIMIT ? OFFSET ?`, order)

	rows, err := db.QueryContext(ctx, query, params.Limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role,
			&user.TelegramChatID, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count users: %w", err)
	}

	return users, &models.PageMeta{Page: params.Page, Limit: params.Limit, Total: total}, nil
}
