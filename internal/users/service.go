// Package users resolves users across sources and runs the account
// lifecycle operations that end in a notification.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/connector/externalusers"
	"github.com/dhawalhost/manageusers/internal/connector/nomis"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/internal/notification"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
	"github.com/dhawalhost/manageusers/pkg/validation"
)

// Service defines user operations.
type Service interface {
	// Lookups
	FindUserByUsername(ctx context.Context, username string, source *identity.AuthSource) (*identity.GenericUser, error)
	FindUserEmail(ctx context.Context, username string, source *identity.AuthSource, includeUnverified bool) (*identity.EmailAddress, error)
	FindUsersByEmail(ctx context.Context, email string) ([]identity.GenericUser, error)
	MyDetails(ctx context.Context) (*identity.GenericUser, error)

	// Prison users
	CreatePrisonUser(ctx context.Context, req CreatePrisonUserRequest) (NewPrisonUser, error)
	SyncEmailWithNomis(ctx context.Context, username string) error
	EnablePrisonUser(ctx context.Context, username string) error
	DisablePrisonUser(ctx context.Context, username string) error
	GetCaseloads(ctx context.Context) ([]identity.Caseload, error)
	GetUserCaseloads(ctx context.Context, username string) (nomis.UserCaseloads, error)
	AddUserCaseload(ctx context.Context, username, caseloadID string) error
	RemoveUserCaseload(ctx context.Context, username, caseloadID string) error

	// External users
	CreateExternalUser(ctx context.Context, req externalusers.CreateUserRequest) (uuid.UUID, error)
	EnableExternalUser(ctx context.Context, userID uuid.UUID) error
	DisableExternalUser(ctx context.Context, userID uuid.UUID, reason string) error
	AmendExternalUserEmail(ctx context.Context, userID uuid.UUID, email string) error
	SearchExternalUsers(ctx context.Context, f externalusers.SearchFilter) (connector.Page[identity.ExternalUser], error)
}

// UserType selects the kind of prison account to create.
type UserType string

const (
	UserTypeCentralAdmin UserType = "DPS_ADM"
	UserTypeGeneral      UserType = "DPS_GEN"
	UserTypeLocalAdmin   UserType = "DPS_LSA"
)

// CreatePrisonUserRequest is a request for a new prison account.
type CreatePrisonUserRequest struct {
	Username          string   `json:"username" validate:"notblank,min=2,max=30"`
	Email             string   `json:"email" validate:"required,email"`
	FirstName         string   `json:"firstName" validate:"notblank,min=2,max=35"`
	LastName          string   `json:"lastName" validate:"notblank,min=2,max=35"`
	UserType          UserType `json:"userType" validate:"required,oneof=DPS_ADM DPS_GEN DPS_LSA"`
	DefaultCaseloadID string   `json:"defaultCaseloadId" validate:"required_unless=UserType DPS_ADM"`
}

// NewPrisonUser is the account created by CreatePrisonUser.
type NewPrisonUser struct {
	Username     string `json:"username"`
	PrimaryEmail string `json:"primaryEmail"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

type service struct {
	deps   Deps
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(deps Deps, logger *zap.Logger) Service {
	return &service{deps: deps, logger: logger}
}

// sourceUser looks a user up in exactly one source. A nil result means the
// source has no such user.
func (s *service) sourceUser(ctx context.Context, username string, source identity.AuthSource) (identity.SourceUser, error) {
	switch source {
	case identity.SourceNomis:
		u, err := s.deps.Prison.FindUserByUsername(ctx, strings.ToUpper(username))
		if u == nil {
			return nil, err
		}
		return *u, nil
	case identity.SourceAuth:
		u, err := s.deps.Auth.FindUser(ctx, username, identity.SourceAuth)
		if u == nil {
			return nil, err
		}
		return *u, nil
	case identity.SourceAzureAD:
		u, err := s.deps.Azure.FindUserByUsername(ctx, username)
		if u == nil {
			return nil, err
		}
		return *u, nil
	case identity.SourceDelius:
		u, err := s.deps.Delius.FindUserByUsername(ctx, username)
		if u == nil {
			return nil, err
		}
		return *u, nil
	case identity.SourceNone:
		return nil, nil
	default:
		return nil, apperr.Validation("source", fmt.Sprintf("unsupported auth source %q", source))
	}
}

// findSourceUser searches the named source, or every source in search order.
func (s *service) findSourceUser(ctx context.Context, username string, source *identity.AuthSource) (identity.SourceUser, error) {
	if source != nil {
		return s.sourceUser(ctx, username, *source)
	}
	for _, src := range identity.SearchOrder {
		u, err := s.sourceUser(ctx, username, src)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	}
	return nil, nil
}

func (s *service) FindUserByUsername(ctx context.Context, username string, source *identity.AuthSource) (*identity.GenericUser, error) {
	u, err := s.findSourceUser(ctx, username, source)
	if u == nil {
		return nil, err
	}
	g := u.ToGenericUser()
	return &g, nil
}

func (s *service) FindUserEmail(ctx context.Context, username string, source *identity.AuthSource, includeUnverified bool) (*identity.EmailAddress, error) {
	u, err := s.findSourceUser(ctx, username, source)
	if u == nil {
		return nil, err
	}
	email := u.EmailAddress()
	if email.Email == "" || (!email.Verified && !includeUnverified) {
		return nil, nil
	}
	return &email, nil
}

func (s *service) FindUsersByEmail(ctx context.Context, email string) ([]identity.GenericUser, error) {
	if err := validation.Struct(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return nil, err
	}

	var (
		external []identity.ExternalUser
		prison   []identity.PrisonUser
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		external, err = s.deps.External.FindUsersByEmail(gctx, email)
		return err
	})
	g.Go(func() error {
		var err error
		prison, err = s.deps.Prison.FindUsersByEmail(gctx, email)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]identity.GenericUser, 0, len(external)+len(prison))
	for _, u := range external {
		out = append(out, u.ToGenericUser())
	}
	for _, u := range prison {
		out = append(out, u.ToGenericUser())
	}
	return out, nil
}

func (s *service) MyDetails(ctx context.Context) (*identity.GenericUser, error) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok || caller.Username == "" {
		return nil, apperr.Unauthorized("no user behind this token")
	}
	var source *identity.AuthSource
	if src, err := identity.ParseAuthSource(caller.AuthSource); err == nil {
		source = &src
	}
	u, err := s.FindUserByUsername(ctx, caller.Username, source)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user %s not found", caller.Username)
	}
	return u, nil
}

func (s *service) CreatePrisonUser(ctx context.Context, req CreatePrisonUserRequest) (NewPrisonUser, error) {
	if err := validation.Struct(req); err != nil {
		return NewPrisonUser{}, err
	}
	if err := s.checkEmailDomain(ctx, req.Email); err != nil {
		return NewPrisonUser{}, err
	}

	create := nomis.CreateUserRequest{
		Username:          strings.ToUpper(req.Username),
		Email:             req.Email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		DefaultCaseloadID: req.DefaultCaseloadID,
	}
	var (
		user identity.PrisonUser
		err  error
	)
	switch req.UserType {
	case UserTypeCentralAdmin:
		user, err = s.deps.Prison.CreateCentralAdminUser(ctx, create)
	case UserTypeGeneral:
		user, err = s.deps.Prison.CreateGeneralUser(ctx, create)
	case UserTypeLocalAdmin:
		user, err = s.deps.Prison.CreateLocalAdminUser(ctx, create)
	default:
		return NewPrisonUser{}, apperr.Validation("userType", fmt.Sprintf("unsupported user type %q", req.UserType))
	}
	if err != nil {
		return NewPrisonUser{}, err
	}

	// The account exists from here on; a failed email is reported but the
	// account is not rolled back.
	if err := s.deps.Notifier.NewPrisonUserNotification(ctx, user, notification.EventPrisonUserCreate); err != nil {
		return NewPrisonUser{}, err
	}
	return NewPrisonUser{
		Username:     user.Username,
		PrimaryEmail: user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
	}, nil
}

func (s *service) checkEmailDomain(ctx context.Context, email string) error {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" {
		return apperr.Validation("email", "Invalid email address")
	}
	domain = strings.ToLower(domain)
	valid, err := s.deps.External.ValidateEmailDomain(ctx, domain)
	if err != nil {
		return err
	}
	if !valid {
		return apperr.Validation("email", "Invalid Email domain: "+domain)
	}
	return nil
}

func (s *service) SyncEmailWithNomis(ctx context.Context, username string) error {
	u, err := s.deps.Prison.FindUserByUsername(ctx, strings.ToUpper(username))
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("prison user %s not found", username)
	}
	return s.deps.Auth.SyncPrisonUserEmail(ctx, *u)
}

func (s *service) EnablePrisonUser(ctx context.Context, username string) error {
	return s.deps.Prison.UnlockUser(ctx, strings.ToUpper(username))
}

func (s *service) DisablePrisonUser(ctx context.Context, username string) error {
	return s.deps.Prison.LockUser(ctx, strings.ToUpper(username))
}

func (s *service) GetCaseloads(ctx context.Context) ([]identity.Caseload, error) {
	return s.deps.Prison.GetCaseloads(ctx)
}

func (s *service) GetUserCaseloads(ctx context.Context, username string) (nomis.UserCaseloads, error) {
	return s.deps.Prison.GetUserCaseloads(ctx, strings.ToUpper(username))
}

func (s *service) AddUserCaseload(ctx context.Context, username, caseloadID string) error {
	return s.deps.Prison.AddUserCaseload(ctx, strings.ToUpper(username), caseloadID)
}

func (s *service) RemoveUserCaseload(ctx context.Context, username, caseloadID string) error {
	return s.deps.Prison.RemoveUserCaseload(ctx, strings.ToUpper(username), caseloadID)
}

func (s *service) CreateExternalUser(ctx context.Context, req externalusers.CreateUserRequest) (uuid.UUID, error) {
	user, err := s.deps.External.CreateUser(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.deps.Notifier.NewExternalUserNotification(ctx, user, notification.EventExternalUserCreate); err != nil {
		return uuid.Nil, err
	}
	return user.UserID, nil
}

func (s *service) EnableExternalUser(ctx context.Context, userID uuid.UUID) error {
	n, err := s.deps.External.EnableUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.deps.Notifier.ExternalUserEnabledNotification(ctx, notification.EnabledUser{
		Username:  n.Username,
		FirstName: n.FirstName,
		Email:     n.Email,
	})
}

func (s *service) DisableExternalUser(ctx context.Context, userID uuid.UUID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperr.Validation("reason", "reason is required")
	}
	return s.deps.External.DisableUser(ctx, userID, reason)
}

func (s *service) AmendExternalUserEmail(ctx context.Context, userID uuid.UUID, email string) error {
	if err := validation.Struct(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return err
	}
	if err := s.checkEmailDomain(ctx, email); err != nil {
		return err
	}
	n, err := s.deps.External.AmendEmail(ctx, userID, email)
	if err != nil {
		return err
	}
	_, err = s.deps.Notifier.VerifyEmailNotification(ctx, notification.VerifyEmail{
		Username:  n.Username,
		FirstName: n.FirstName,
		FullName:  strings.TrimSpace(n.FirstName + " " + n.LastName),
		Email:     n.Email,
		Source:    identity.SourceAuth,
	})
	return err
}

func (s *service) SearchExternalUsers(ctx context.Context, f externalusers.SearchFilter) (connector.Page[identity.ExternalUser], error) {
	if err := validation.Struct(f); err != nil {
		return connector.Page[identity.ExternalUser]{}, err
	}
	return s.deps.External.SearchUsers(ctx, f)
}
