package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/abilities/internal/shared"
)

// ErrNotFound indicates the tenant does not exist.
var ErrNotFound = fmt.Errorf("tenants: %w", shared.ErrNotFound)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tenantColumns = `id, name, selected_features, feature_abilities, created_at, updated_at`

// Create inserts a tenant.
func (r *Repository) Create(ctx context.Context, name string, cfg FeatureConfig) (Tenant, error) {
	features, overrides, err := encodeConfig(cfg)
	if err != nil {
		return Tenant{}, err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO tenants (name, selected_features, feature_abilities)
		VALUES ($1, $2, $3) RETURNING `+tenantColumns, name, features, overrides)
	return scanTenant(row)
}

// Get loads a tenant by id.
func (r *Repository) Get(ctx context.Context, id int64) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// UpdateFeatures stores a new feature configuration.
func (r *Repository) UpdateFeatures(ctx context.Context, id int64, cfg FeatureConfig) (Tenant, error) {
	features, overrides, err := encodeConfig(cfg)
	if err != nil {
		return Tenant{}, err
	}
	row := r.pool.QueryRow(ctx, `UPDATE tenants
		SET selected_features = $2, feature_abilities = $3, updated_at = now()
		WHERE id = $1 RETURNING `+tenantColumns, id, features, overrides)
	return scanTenant(row)
}

// ListIDs returns every tenant id in ascending order.
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var (
		t         Tenant
		features  []byte
		overrides []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &features, &overrides, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	if err := json.Unmarshal(features, &t.SelectedFeatures); err != nil {
		return Tenant{}, fmt.Errorf("tenants: decode selected_features: %w", err)
	}
	if len(overrides) > 0 && string(overrides) != "null" {
		if err := json.Unmarshal(overrides, &t.FeatureAbilities); err != nil {
			return Tenant{}, fmt.Errorf("tenants: decode feature_abilities: %w", err)
		}
	}
	return t, nil
}

func encodeConfig(cfg FeatureConfig) ([]byte, []byte, error) {
	selected := cfg.Features
	if selected == nil {
		selected = []string{}
	}
	features, err := json.Marshal(selected)
	if err != nil {
		return nil, nil, err
	}
	if cfg.FeatureAbilities == nil {
		return features, nil, nil
	}
	overrides, err := json.Marshal(cfg.FeatureAbilities)
	if err != nil {
		return nil, nil, err
	}
	return features, overrides, nil
}
