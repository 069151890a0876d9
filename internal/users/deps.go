package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/connector/externalusers"
	"github.com/dhawalhost/manageusers/internal/connector/nomis"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/internal/notification"
)

// PrisonUsers is the prison system as used by this package.
type PrisonUsers interface {
	FindUserByUsername(ctx context.Context, username string) (*identity.PrisonUser, error)
	FindUsersByEmail(ctx context.Context, email string) ([]identity.PrisonUser, error)
	CreateCentralAdminUser(ctx context.Context, req nomis.CreateUserRequest) (identity.PrisonUser, error)
	CreateGeneralUser(ctx context.Context, req nomis.CreateUserRequest) (identity.PrisonUser, error)
	CreateLocalAdminUser(ctx context.Context, req nomis.CreateUserRequest) (identity.PrisonUser, error)
	LockUser(ctx context.Context, username string) error
	UnlockUser(ctx context.Context, username string) error
	GetCaseloads(ctx context.Context) ([]identity.Caseload, error)
	GetUserCaseloads(ctx context.Context, username string) (nomis.UserCaseloads, error)
	AddUserCaseload(ctx context.Context, username, caseloadID string) error
	RemoveUserCaseload(ctx context.Context, username, caseloadID string) error
}

// ExternalUsers is the external users directory as used by this package.
type ExternalUsers interface {
	FindUsersByEmail(ctx context.Context, email string) ([]identity.ExternalUser, error)
	SearchUsers(ctx context.Context, f externalusers.SearchFilter) (connector.Page[identity.ExternalUser], error)
	CreateUser(ctx context.Context, req externalusers.CreateUserRequest) (identity.ExternalUser, error)
	EnableUser(ctx context.Context, userID uuid.UUID) (externalusers.EmailNotification, error)
	DisableUser(ctx context.Context, userID uuid.UUID, reason string) error
	AmendEmail(ctx context.Context, userID uuid.UUID, email string) (externalusers.EmailNotification, error)
	ValidateEmailDomain(ctx context.Context, domain string) (bool, error)
}

// AuthUsers is the auth service as used by this package.
type AuthUsers interface {
	FindUser(ctx context.Context, username string, source identity.AuthSource) (*identity.ExternalUser, error)
	SyncPrisonUserEmail(ctx context.Context, u identity.PrisonUser) error
}

// DeliusUsers looks up probation users.
type DeliusUsers interface {
	FindUserByUsername(ctx context.Context, username string) (*identity.DeliusUser, error)
}

// AzureUsers looks up Azure AD users.
type AzureUsers interface {
	FindUserByUsername(ctx context.Context, username string) (*identity.AzureUser, error)
}

// Notifier sends account emails.
type Notifier interface {
	NewPrisonUserNotification(ctx context.Context, u identity.PrisonUser, eventPrefix string) error
	NewExternalUserNotification(ctx context.Context, u identity.ExternalUser, eventPrefix string) error
	ExternalUserEnabledNotification(ctx context.Context, u notification.EnabledUser) error
	VerifyEmailNotification(ctx context.Context, v notification.VerifyEmail) (string, error)
}

// Deps are the upstreams and collaborators of the user service.
type Deps struct {
	Prison   PrisonUsers
	External ExternalUsers
	Auth     AuthUsers
	Delius   DeliusUsers
	Azure    AzureUsers
	Notifier Notifier
}
