package users

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/rbac"
	"github.com/odyssey-erp/abilities/internal/roles"
	"github.com/odyssey-erp/abilities/internal/shared"
)

var (
	// ErrOutranked is returned when the role is more senior than any role the
	// caller holds in the tenant.
	ErrOutranked = fmt.Errorf("users: role outranks the caller: %w", shared.ErrForbidden)
	// ErrWildcardRole is returned for roles holding the wildcard. Those are
	// only ever assigned globally, outside the tenant API.
	ErrWildcardRole = fmt.Errorf("users: wildcard roles cannot be assigned within a tenant: %w", shared.ErrForbidden)
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	ListAssignments(ctx context.Context, userID, tenantID int64) ([]AssignedRole, error)
}

// RoleFinder resolves a role a tenant may hand out: its own roles first,
// then the global ones.
type RoleFinder interface {
	FindAssignable(ctx context.Context, tenantID int64, slug string) (roles.Role, error)
}

// Assigner writes role assignments.
type Assigner interface {
	AssignRole(ctx context.Context, a rbac.Assignment) error
	RemoveRole(ctx context.Context, a rbac.Assignment) error
}

// Service manages the roles users hold within a tenant.
type Service struct {
	repo     RepositoryPort
	roles    RoleFinder
	assigner Assigner
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleFinder, assigner Assigner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, assigner: assigner, logger: logger}
}

// ListRoles returns the user's assignments that apply in tenantID.
func (s *Service) ListRoles(ctx context.Context, tenantID, userID int64) (Roles, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Roles{}, err
	}
	assigned, err := s.repo.ListAssignments(ctx, userID, tenantID)
	if err != nil {
		return Roles{}, fmt.Errorf("users: list assignments: %w", err)
	}
	if assigned == nil {
		assigned = []AssignedRole{}
	}
	return Roles{User: user, TenantID: tenantID, Roles: assigned}, nil
}

// Assign grants the role to the user within tenantID on behalf of actorID.
// The actor may not hand out a role more senior than their own most senior
// role in that tenant.
func (s *Service) Assign(ctx context.Context, actorID, tenantID, userID int64, slug string) error {
	a, role, err := s.assignment(ctx, tenantID, userID, slug)
	if err != nil {
		return err
	}
	if err := s.checkRank(ctx, actorID, tenantID, role); err != nil {
		return err
	}
	return s.assign(ctx, a, role)
}

// Grant assigns the role without an actor, for provisioning scripts. The
// assignment is scoped to tenantID even when the role itself is global.
func (s *Service) Grant(ctx context.Context, tenantID, userID int64, slug string) error {
	a, role, err := s.assignment(ctx, tenantID, userID, slug)
	if err != nil {
		return err
	}
	return s.assign(ctx, a, role)
}

// Unassign removes the tenant-scoped assignment on behalf of actorID. Global
// assignments are untouched.
func (s *Service) Unassign(ctx context.Context, actorID, tenantID, userID int64, slug string) error {
	a, role, err := s.assignment(ctx, tenantID, userID, slug)
	if err != nil {
		return err
	}
	if err := s.checkRank(ctx, actorID, tenantID, role); err != nil {
		return err
	}
	if err := s.assigner.RemoveRole(ctx, a); err != nil {
		return fmt.Errorf("users: remove %s: %w", slug, err)
	}
	s.logger.Info("role removed", slog.Int64("tenant_id", tenantID), slog.Int64("user_id", userID),
		slog.String("role", slug), slog.Int64("actor_id", actorID))
	return nil
}

func (s *Service) assign(ctx context.Context, a rbac.Assignment, role roles.Role) error {
	if slices.Contains(role.Abilities, ability.Wildcard) {
		return ErrWildcardRole
	}
	if err := s.assigner.AssignRole(ctx, a); err != nil {
		return fmt.Errorf("users: assign %s: %w", role.Slug, err)
	}
	s.logger.Info("role assigned", slog.Int64("tenant_id", *a.TenantID), slog.Int64("user_id", a.UserID), slog.String("role", role.Slug))
	return nil
}

func (s *Service) checkRank(ctx context.Context, actorID, tenantID int64, role roles.Role) error {
	held, err := s.repo.ListAssignments(ctx, actorID, tenantID)
	if err != nil {
		return fmt.Errorf("users: list caller assignments: %w", err)
	}
	if len(held) == 0 {
		return ErrOutranked
	}
	senior := held[0].Level
	for _, r := range held[1:] {
		senior = min(senior, r.Level)
	}
	if role.Level < senior {
		return ErrOutranked
	}
	return nil
}

func (s *Service) assignment(ctx context.Context, tenantID, userID int64, slug string) (rbac.Assignment, roles.Role, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return rbac.Assignment{}, roles.Role{}, err
	}
	role, err := s.roles.FindAssignable(ctx, tenantID, slug)
	if err != nil {
		return rbac.Assignment{}, roles.Role{}, err
	}
	return rbac.Assignment{UserID: userID, RoleID: role.ID, TenantID: &tenantID}, role, nil
}
