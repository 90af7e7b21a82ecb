package roles

import (
	"context"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListByTenant(ctx context.Context, tenantID int64) ([]Role, error)
	FindBySlug(ctx context.Context, tenantID int64, slug string) (Role, error)
}

// Service handles role queries.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns the roles visible to a tenant.
func (s *Service) ListRoles(ctx context.Context, tenantID int64) ([]Role, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// FindBySlug returns a tenant role by slug.
func (s *Service) FindBySlug(ctx context.Context, tenantID int64, slug string) (Role, error) {
	return s.repo.FindBySlug(ctx, tenantID, slug)
}
