package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/abilities/internal/shared"
)

// ErrUserNotFound indicates the user does not exist.
var ErrUserNotFound = fmt.Errorf("rbac: user %w", shared.ErrNotFound)

// Repository reads users and role assignments from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUser loads the user and its home tenant.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id FROM users WHERE id = $1`, id).Scan(&u.ID, &u.TenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Memberships returns the user's role assignments made globally or within
// tenantID. A nil tenantID matches global assignments only.
func (r *Repository) Memberships(ctx context.Context, userID int64, tenantID *int64) ([]Membership, error) {
	rows, err := r.pool.Query(ctx, `SELECT ru.role_id, r.slug, ru.tenant_id, r.abilities
		FROM role_user ru
		JOIN roles r ON r.id = ru.role_id
		WHERE ru.user_id = $1 AND (ru.tenant_id IS NULL OR ru.tenant_id = $2)`, userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Membership
	for rows.Next() {
		var (
			m   Membership
			raw []byte
		)
		if err := rows.Scan(&m.RoleID, &m.RoleSlug, &m.TenantID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &m.Abilities); err != nil {
			return nil, fmt.Errorf("rbac: decode abilities of role %d: %w", m.RoleID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AssignRole attaches a role to a user within the assignment tenant context.
func (r *Repository) AssignRole(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_user (user_id, role_id, tenant_id) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, a.UserID, a.RoleID, a.TenantID)
	return err
}

// RemoveRole detaches a role assignment made within the given tenant context.
func (r *Repository) RemoveRole(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_user
		WHERE user_id = $1 AND role_id = $2 AND tenant_id IS NOT DISTINCT FROM $3`, a.UserID, a.RoleID, a.TenantID)
	return err
}
