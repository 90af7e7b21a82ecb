package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/platform/db"
	"github.com/odyssey-erp/abilities/internal/shared"
)

// ErrNotFound indicates the role does not exist.
var ErrNotFound = fmt.Errorf("roles: %w", shared.ErrNotFound)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool     *pgxpool.Pool
	attempts int
}

// NewRepository constructs a repository. attempts bounds the retries of a
// merge transaction that lost a race.
func NewRepository(pool *pgxpool.Pool, attempts int) *Repository {
	if attempts < 1 {
		attempts = 5
	}
	return &Repository{pool: pool, attempts: attempts}
}

const roleColumns = `id, tenant_id, slug, name, abilities, level, created_at, updated_at`

// ListByTenant returns the tenant's roles followed by the global roles, most senior first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles
		WHERE tenant_id = $1 OR tenant_id IS NULL
		ORDER BY tenant_id NULLS LAST, level, slug`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// FindBySlug loads a tenant role by slug.
func (r *Repository) FindBySlug(ctx context.Context, tenantID int64, slug string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE tenant_id = $1 AND slug = $2`, tenantID, slug)
	return scanRole(row)
}

// FindAssignable loads a role a tenant may assign: the tenant's own role with
// that slug, otherwise a global one.
func (r *Repository) FindAssignable(ctx context.Context, tenantID int64, slug string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles
		WHERE slug = $2 AND (tenant_id = $1 OR tenant_id IS NULL)
		ORDER BY tenant_id NULLS LAST LIMIT 1`, tenantID, slug)
	return scanRole(row)
}

// UpsertMerge creates the role or merges the blueprint into the existing row
// as one read-modify-write under a row lock. Lost races are retried.
func (r *Repository) UpsertMerge(ctx context.Context, tenantID int64, bp Blueprint) (Role, error) {
	var out Role
	err := db.WithTxRetry(ctx, r.pool, r.attempts, func(tx pgx.Tx) error {
		existing, err := scanRole(tx.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles
			WHERE tenant_id = $1 AND slug = $2 FOR UPDATE`, tenantID, bp.Slug))
		switch {
		case errors.Is(err, ErrNotFound):
			abilities, level := Merge(nil, bp)
			raw, err := json.Marshal(abilities)
			if err != nil {
				return err
			}
			out, err = scanRole(tx.QueryRow(ctx, `INSERT INTO roles (tenant_id, slug, name, abilities, level)
				VALUES ($1, $2, $3, $4, $5) RETURNING `+roleColumns, tenantID, bp.Slug, bp.Name, raw, level))
			return err
		case err != nil:
			return err
		}

		abilities, level := Merge(&existing, bp)
		if level == existing.Level && ability.NewSet(abilities...).Equal(ability.NewSet(existing.Abilities...)) {
			out = existing
			return nil
		}
		raw, err := json.Marshal(abilities)
		if err != nil {
			return err
		}
		out, err = scanRole(tx.QueryRow(ctx, `UPDATE roles SET abilities = $2, level = $3, updated_at = now()
			WHERE id = $1 RETURNING `+roleColumns, existing.ID, raw, level))
		return err
	})
	if err != nil {
		return Role{}, fmt.Errorf("roles: upsert %s for tenant %d: %w", bp.Slug, tenantID, err)
	}
	return out, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role Role
		raw  []byte
	)
	if err := row.Scan(&role.ID, &role.TenantID, &role.Slug, &role.Name, &raw, &role.Level, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	if err := json.Unmarshal(raw, &role.Abilities); err != nil {
		return Role{}, fmt.Errorf("roles: decode abilities: %w", err)
	}
	return role, nil
}
