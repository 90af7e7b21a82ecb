// Command seed loads demo tenants, users and role assignments into a
// development database through the same services the server uses. Run it
// once against a freshly migrated database.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/abilities/internal/app"
	"github.com/odyssey-erp/abilities/internal/roles"
	"github.com/odyssey-erp/abilities/internal/tenants"
)

type demoUser struct {
	email  string
	name   string
	tenant string
	roles  []string
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	services, err := app.Bootstrap(ctx, cfg, app.NewLogger(cfg), nil)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer func() { _ = services.Close() }()

	fmt.Println("→ Seeding tenants...")
	ids, err := seedTenants(ctx, services.Tenants)
	if err != nil {
		log.Fatalf("seed tenants: %v", err)
	}

	fmt.Println("→ Seeding users...")
	users := []demoUser{
		{email: "owner@acme.local", name: "Acme Owner", tenant: "Acme Clinic", roles: []string{roles.SlugTenant}},
		{email: "planner@acme.local", name: "Acme Planner", tenant: "Acme Clinic", roles: []string{"tasks_editor", "reports_viewer"}},
		{email: "client@acme.local", name: "Acme Client", tenant: "Acme Clinic", roles: []string{roles.SlugClientViewer}},
		{email: "designer@northwind.local", name: "Northwind Designer", tenant: "Northwind Studio", roles: []string{"files_manager"}},
	}
	for _, u := range users {
		tenantID := ids[u.tenant]
		userID, err := upsertUser(ctx, services.Pool, u, tenantID)
		if err != nil {
			log.Fatalf("seed user %s: %v", u.email, err)
		}
		for _, slug := range u.roles {
			if err := services.Users.Grant(ctx, tenantID, userID, slug); err != nil {
				log.Fatalf("assign %s to %s: %v", slug, u.email, err)
			}
		}
	}

	fmt.Println("→ Seeding platform admin...")
	if err := seedPlatformAdmin(ctx, services.Pool); err != nil {
		log.Fatalf("seed platform admin: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedTenants(ctx context.Context, svc *tenants.Service) (map[string]int64, error) {
	inputs := []tenants.CreateInput{
		{Name: "Acme Clinic", FeatureConfig: tenants.FeatureConfig{
			Features: []string{"dashboard", "tasks", "reports", "clients", "appointments"},
		}},
		{Name: "Northwind Studio", FeatureConfig: tenants.FeatureConfig{
			Features: []string{"tasks", "files"},
			FeatureAbilities: map[string][]string{
				"tasks": {"tasks.view", "tasks.create", "tasks.edit"},
			},
		}},
	}
	ids := make(map[string]int64, len(inputs))
	for _, in := range inputs {
		t, err := svc.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		ids[t.Name] = t.ID
	}
	return ids, nil
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, u demoUser, tenantID int64) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO users (tenant_id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, name = EXCLUDED.name
		RETURNING id`, tenantID, u.email, u.name).Scan(&id)
	return id, err
}

// The platform admin holds super_admin through a global assignment.
func seedPlatformAdmin(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		WITH admin AS (
			INSERT INTO users (email, name) VALUES ('admin@abilities.local', 'Platform Admin')
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		)
		INSERT INTO role_user (user_id, role_id, tenant_id)
		SELECT admin.id, roles.id, NULL FROM admin, roles
		WHERE roles.slug = $1 AND roles.tenant_id IS NULL
		ON CONFLICT DO NOTHING`, roles.SlugSuperAdmin)
	return err
}
