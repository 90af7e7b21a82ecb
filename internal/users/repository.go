package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/abilities/internal/shared"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = fmt.Errorf("users: %w", shared.ErrNotFound)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUser loads a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, email, name, created_at FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.TenantID, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// ListAssignments returns the user's assignments made within tenantID or globally.
func (r *Repository) ListAssignments(ctx context.Context, userID, tenantID int64) ([]AssignedRole, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.slug, r.name, r.level, ru.tenant_id IS NULL
		FROM role_user ru
		JOIN roles r ON r.id = ru.role_id
		WHERE ru.user_id = $1 AND (ru.tenant_id = $2 OR ru.tenant_id IS NULL)
		ORDER BY r.level, r.slug`, userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AssignedRole
	for rows.Next() {
		var a AssignedRole
		if err := rows.Scan(&a.RoleID, &a.Slug, &a.Name, &a.Level, &a.Global); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
