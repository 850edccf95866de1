// Package security manages principals and credentials.
package security

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"datashield/internal/domain"
)

// IdentityService creates, authenticates, and administers principals.
// Passwords are stored as bcrypt hashes only.
type IdentityService struct {
	principals domain.PrincipalRepository
	audits     domain.AuditRepository
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(principals domain.PrincipalRepository, audits domain.AuditRepository) *IdentityService {
	return &IdentityService{principals: principals, audits: audits}
}

// CreateUser registers a new principal with a bcrypt-hashed password.
// A duplicate name surfaces as ConflictError from the repository layer.
func (s *IdentityService) CreateUser(ctx context.Context, name, password, role string) (*domain.Principal, error) {
	if name == "" {
		return nil, domain.ErrValidation("username must not be empty")
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrValidation("invalid role %q: must be one of admin, analyst, viewer", role)
	}
	if len(password) < 8 {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.principals.Create(ctx, &domain.Principal{
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	s.logAction(ctx, name, "create_user", domain.AuditStatusSuccess, "")
	return created, nil
}

// Authenticate verifies a name/password pair. Failure is always the same
// AccessDeniedError regardless of whether the name or the password was wrong.
func (s *IdentityService) Authenticate(ctx context.Context, name, password string) (*domain.Principal, error) {
	principal, err := s.principals.GetByName(ctx, name)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			s.logAction(ctx, name, "login", domain.AuditStatusDenied, "invalid credentials")
			return nil, domain.ErrAccessDenied("invalid credentials")
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)) != nil {
		s.logAction(ctx, name, "login", domain.AuditStatusDenied, "invalid credentials")
		return nil, domain.ErrAccessDenied("invalid credentials")
	}

	s.logAction(ctx, name, "login", domain.AuditStatusSuccess, "")
	return principal, nil
}

// GetUser returns a principal by name.
func (s *IdentityService) GetUser(ctx context.Context, name string) (*domain.Principal, error) {
	return s.principals.GetByName(ctx, name)
}

// ListUsers returns all principals, newest first.
func (s *IdentityService) ListUsers(ctx context.Context) ([]domain.Principal, error) {
	return s.principals.List(ctx)
}

// DeleteUser removes a principal; its grants cascade.
func (s *IdentityService) DeleteUser(ctx context.Context, name string) error {
	if err := s.principals.Delete(ctx, name); err != nil {
		return err
	}
	s.logAction(ctx, name, "delete_user", domain.AuditStatusSuccess, "")
	return nil
}

// logAction is best-effort: an audit write failure never fails the operation.
func (s *IdentityService) logAction(ctx context.Context, principal, action, status, reason string) {
	_ = s.audits.Insert(ctx, &domain.AuditEntry{
		PrincipalName: principal,
		Action:        action,
		Status:        status,
		Reason:        reason,
	})
}
