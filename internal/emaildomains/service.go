// Package emaildomains manages the allow list of email domains accepted for
// new and amended user accounts.
package emaildomains

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/validation"
)

// Store is the external users registry as used for email domains.
type Store interface {
	GetEmailDomains(ctx context.Context) ([]identity.EmailDomain, error)
	AddEmailDomain(ctx context.Context, domain, description string) (identity.EmailDomain, error)
	DeleteEmailDomain(ctx context.Context, id uuid.UUID) error
}

// CreateRequest is a domain to allow.
type CreateRequest struct {
	Domain      string `json:"name" validate:"notblank,min=6,max=100"`
	Description string `json:"description" validate:"max=200"`
}

// Service manages the allow list.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates an email domain service.
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns every allowed domain.
func (s *Service) List(ctx context.Context) ([]identity.EmailDomain, error) {
	return s.store.GetEmailDomains(ctx)
}

// Add allows a domain. Domains are stored lower case.
func (s *Service) Add(ctx context.Context, req CreateRequest) (identity.EmailDomain, error) {
	if err := validation.Struct(req); err != nil {
		return identity.EmailDomain{}, err
	}
	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	created, err := s.store.AddEmailDomain(ctx, domain, strings.TrimSpace(req.Description))
	if err != nil {
		return identity.EmailDomain{}, err
	}
	s.logger.Info("email domain added", zap.String("domain", domain), zap.Stringer("id", created.ID))
	return created, nil
}

// Delete removes a domain from the allow list.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteEmailDomain(ctx, id); err != nil {
		return err
	}
	s.logger.Info("email domain deleted", zap.Stringer("id", id))
	return nil
}
