// Package notification issues single-use tokens and sends the emails that
// carry them.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector/auth"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

// Event prefixes. A failed send is tracked as "<prefix>Failure".
const (
	EventPrisonUserCreate     = "DPSUserCreate"
	EventExternalUserCreate   = "ExternalUserCreate"
	EventExternalUserEnabled  = "ExternalUserEnabledEmail"
	EventVerifyEmailRequested = "VerifyEmailRequest"
)

const (
	purposeInitialPassword = "initial-password"
	purposeVerifyEmail     = "verify-email-confirm"
)

// Tokens issues single-use tokens.
type Tokens interface {
	CreateNewToken(ctx context.Context, req auth.NewTokenRequest) (string, error)
	CreateResetToken(ctx context.Context, userID uuid.UUID) (string, error)
	CreateEmailTypeToken(ctx context.Context, req auth.EmailTypeTokenRequest) (string, error)
}

// Sender delivers a templated email.
type Sender interface {
	Send(ctx context.Context, templateID string, personalisation map[string]string, recipient string) error
}

// Tracker records telemetry events.
type Tracker interface {
	Track(ctx context.Context, name string, properties map[string]string)
}

// Templates are the email template ids per notification kind.
type Templates struct {
	InitialPassword string
	EnableUser      string
	VerifyEmail     string
}

// Config configures the links and templates used in emails.
type Config struct {
	// AuthBaseURI is the public URL of the auth service that links point at.
	AuthBaseURI string
	// SupportLink is optional.
	SupportLink string
	Templates   Templates
}

// Service runs the token, link and send steps for each notification kind.
type Service struct {
	cfg     Config
	tokens  Tokens
	sender  Sender
	tracker Tracker
	logger  *zap.Logger
}

// NewService creates a notification service.
func NewService(cfg Config, tokens Tokens, sender Sender, tracker Tracker, logger *zap.Logger) *Service {
	cfg.AuthBaseURI = strings.TrimRight(cfg.AuthBaseURI, "/")
	return &Service{cfg: cfg, tokens: tokens, sender: sender, tracker: tracker, logger: logger}
}

// NewPrisonUserNotification sends a new prison user the link to set their
// password.
func (s *Service) NewPrisonUserNotification(ctx context.Context, u identity.PrisonUser, eventPrefix string) error {
	n := s.begin(eventPrefix, u.Username, u.Email, s.cfg.Templates.InitialPassword)
	token, err := s.tokens.CreateNewToken(ctx, auth.NewTokenRequest{
		Username:  u.Username,
		Email:     u.Email,
		Source:    identity.SourceNomis,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
	if err != nil {
		return n.tokenFailed(err)
	}
	n.tokenIssued()

	n.params = map[string]string{
		"firstName": u.FirstNameCapitalized(),
		"fullName":  u.ToGenericUser().Name,
		"resetLink": n.linkBuilt(s.link(purposeInitialPassword, token)),
	}
	return s.send(ctx, n)
}

// NewExternalUserNotification sends a new external user the link to set
// their password.
func (s *Service) NewExternalUserNotification(ctx context.Context, u identity.ExternalUser, eventPrefix string) error {
	n := s.begin(eventPrefix, u.Username, u.Email, s.cfg.Templates.InitialPassword)
	token, err := s.tokens.CreateResetToken(ctx, u.UserID)
	if err != nil {
		return n.tokenFailed(err)
	}
	n.tokenIssued()

	n.params = map[string]string{
		"firstName": u.FirstName,
		"fullName":  u.ToGenericUser().Name,
		"resetLink": n.linkBuilt(s.link(purposeInitialPassword, token)),
	}
	return s.send(ctx, n)
}

// EnabledUser identifies a re-enabled user.
type EnabledUser struct {
	Username  string
	FirstName string
	Email     string
}

// ExternalUserEnabledNotification tells a user their account is enabled
// again. Users without an email address are skipped.
func (s *Service) ExternalUserEnabledNotification(ctx context.Context, u EnabledUser) error {
	if u.Email == "" {
		s.logger.Info("user has no email address, skipping enabled notification", zap.String("username", u.Username))
		return nil
	}
	n := s.begin(EventExternalUserEnabled, u.Username, u.Email, s.cfg.Templates.EnableUser)
	n.params = map[string]string{
		"firstName": u.FirstName,
		"username":  u.Username,
		"signinUrl": n.linkBuilt(s.cfg.AuthBaseURI + "/"),
	}
	return s.send(ctx, n)
}

// VerifyEmail identifies an address to verify.
type VerifyEmail struct {
	Username  string
	FirstName string
	FullName  string
	Email     string
	Source    identity.AuthSource
	EmailType auth.EmailType
}

// VerifyEmailNotification sends the verification link for a changed email
// address and returns the link.
func (s *Service) VerifyEmailNotification(ctx context.Context, v VerifyEmail) (string, error) {
	if v.EmailType == "" {
		v.EmailType = auth.EmailTypePrimary
	}
	n := s.begin(EventVerifyEmailRequested, v.Username, v.Email, s.cfg.Templates.VerifyEmail)
	token, err := s.tokens.CreateEmailTypeToken(ctx, auth.EmailTypeTokenRequest{
		Username:  v.Username,
		Email:     v.Email,
		Source:    v.Source,
		EmailType: v.EmailType,
	})
	if err != nil {
		return "", n.tokenFailed(err)
	}
	n.tokenIssued()

	link := n.linkBuilt(s.link(purposeVerifyEmail, token))
	n.params = map[string]string{
		"firstName":  v.FirstName,
		"fullName":   v.FullName,
		"verifyLink": link,
	}
	if err := s.send(ctx, n); err != nil {
		return "", err
	}
	return link, nil
}

func (s *Service) link(purpose, token string) string {
	return s.cfg.AuthBaseURI + "/" + purpose + "?token=" + token
}

func (s *Service) begin(eventPrefix, username, recipient, templateID string) *notice {
	return &notice{
		eventPrefix: eventPrefix,
		username:    username,
		recipient:   recipient,
		templateID:  templateID,
		stage:       StageRequested,
		logger:      s.logger,
	}
}

// send delivers n. A provider failure is logged and tracked, then returned
// wrapped so the provider error stays reachable with errors.Is and errors.As.
func (s *Service) send(ctx context.Context, n *notice) error {
	if s.cfg.SupportLink != "" {
		n.params["supportLink"] = s.cfg.SupportLink
	}

	if err := s.sender.Send(ctx, n.templateID, n.params, n.recipient); err != nil {
		n.advance(StageSendFailed)
		reason := causeName(err)
		s.logger.Warn("failed to send notification",
			zap.String("event", n.eventPrefix),
			zap.String("username", n.username),
			zap.String("cause", reason),
			zap.Error(err),
		)
		s.tracker.Track(ctx, n.eventPrefix+"Failure", map[string]string{
			"username": n.username,
			"reason":   reason,
			"admin":    adminName(ctx),
		})
		return apperr.NotificationFailure(n.username, err)
	}
	n.advance(StageSent)
	s.logger.Info("notification sent", zap.String("event", n.eventPrefix), zap.String("username", n.username))
	return nil
}

func adminName(ctx context.Context) string {
	caller, _ := middleware.CallerFromContext(ctx)
	return caller.Username
}

// causeName returns the type name of the innermost error, without package.
func causeName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
