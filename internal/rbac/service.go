package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/abilities/internal/ability"
)

// RepositoryPort is the storage the resolver reads from.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	Memberships(ctx context.Context, userID int64, tenantID *int64) ([]Membership, error)
}

// DecisionRecorder observes authorization outcomes.
type DecisionRecorder interface {
	ObserveDecision(allowed bool, err error)
}

// Service resolves the abilities a user holds and answers grant checks. It
// holds no state between calls and is safe for concurrent use.
type Service struct {
	repo     RepositoryPort
	recorder DecisionRecorder
	logger   *slog.Logger
}

// NewService constructs a Service. recorder may be nil.
func NewService(repo RepositoryPort, recorder DecisionRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// ResolveAbilities returns the literal abilities granted to the user by role
// assignments made globally or within the tenant context. A nil tenantID
// resolves against the user's home tenant.
func (s *Service) ResolveAbilities(ctx context.Context, user User, tenantID *int64) (ability.Set, error) {
	if tenantID == nil {
		tenantID = user.TenantID
	}
	memberships, err := s.repo.Memberships(ctx, user.ID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("rbac: resolve abilities for user %d: %w", user.ID, err)
	}
	held := make(ability.Set)
	for _, m := range memberships {
		if !assignmentMatches(m.TenantID, tenantID) {
			continue
		}
		held.Add(m.Abilities...)
	}
	return held, nil
}

// Closure returns the effective grant view used by every check below.
func (s *Service) Closure(ctx context.Context, user User, tenantID *int64) (ability.Closure, error) {
	held, err := s.ResolveAbilities(ctx, user, tenantID)
	if err != nil {
		return ability.Closure{}, err
	}
	return ability.NewClosure(held), nil
}

// UserClosure loads the user and resolves the closure within tenantID,
// returning the tenant context the resolution was bound to.
func (s *Service) UserClosure(ctx context.Context, userID int64, tenantID *int64) (ability.Closure, *int64, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return ability.Closure{}, nil, err
	}
	if tenantID == nil {
		tenantID = user.TenantID
	}
	closure, err := s.Closure(ctx, user, tenantID)
	if err != nil {
		return ability.Closure{}, nil, err
	}
	return closure, tenantID, nil
}

// UserHasAbility reports whether the user holds a, directly or through the
// wildcard, the feature manage ability, or a cross-feature alias.
func (s *Service) UserHasAbility(ctx context.Context, user User, a string, tenantID *int64) (bool, error) {
	return s.UserHasAnyAbility(ctx, user, []string{a}, tenantID)
}

// UserHasAnyAbility reports whether the user holds at least one of abilities.
func (s *Service) UserHasAnyAbility(ctx context.Context, user User, abilities []string, tenantID *int64) (bool, error) {
	for _, a := range abilities {
		if err := ability.Validate(a); err != nil {
			s.record(false, err)
			return false, err
		}
	}
	closure, err := s.Closure(ctx, user, tenantID)
	if err != nil {
		s.record(false, err)
		return false, err
	}
	allowed := closure.AllowsAny(abilities)
	s.record(allowed, nil)
	return allowed, nil
}

// Authorize loads the user and checks a single ability.
func (s *Service) Authorize(ctx context.Context, userID int64, a string, tenantID *int64) (bool, error) {
	if err := ability.Validate(a); err != nil {
		s.record(false, err)
		return false, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		s.record(false, err)
		return false, err
	}
	return s.UserHasAbility(ctx, user, a, tenantID)
}

// AuthorizeCode checks a pipe-delimited list of acceptable abilities
// ("tasks.view|reports.view"). Any listed ability grants, and so does the
// manage ability of any listed ability's feature.
func (s *Service) AuthorizeCode(ctx context.Context, userID int64, code string, tenantID *int64) (bool, error) {
	codes, err := ParseCode(code)
	if err != nil {
		s.record(false, err)
		return false, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		s.record(false, err)
		return false, err
	}
	return s.UserHasAnyAbility(ctx, user, codes, tenantID)
}

// ParseCode splits and validates a pipe-delimited ability code.
func ParseCode(code string) ([]string, error) {
	parts := strings.Split(code, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if err := ability.Validate(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) record(allowed bool, err error) {
	if s.recorder != nil {
		s.recorder.ObserveDecision(allowed, err)
	}
}

// assignmentMatches guards tenant isolation independently of the storage query.
func assignmentMatches(assignment, bound *int64) bool {
	if assignment == nil {
		return true
	}
	return bound != nil && *assignment == *bound
}
