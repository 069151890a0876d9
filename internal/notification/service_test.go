package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector/auth"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

type fakeTokens struct {
	token    string
	err      error
	newReqs  []auth.NewTokenRequest
	resetIDs []uuid.UUID
	typeReqs []auth.EmailTypeTokenRequest
}

func (f *fakeTokens) CreateNewToken(_ context.Context, req auth.NewTokenRequest) (string, error) {
	f.newReqs = append(f.newReqs, req)
	return f.token, f.err
}

func (f *fakeTokens) CreateResetToken(_ context.Context, id uuid.UUID) (string, error) {
	f.resetIDs = append(f.resetIDs, id)
	return f.token, f.err
}

func (f *fakeTokens) CreateEmailTypeToken(_ context.Context, req auth.EmailTypeTokenRequest) (string, error) {
	f.typeReqs = append(f.typeReqs, req)
	return f.token, f.err
}

type sent struct {
	templateID string
	params     map[string]string
	recipient  string
}

type fakeSender struct {
	err  error
	sent []sent
}

func (f *fakeSender) Send(_ context.Context, templateID string, params map[string]string, recipient string) error {
	f.sent = append(f.sent, sent{templateID, params, recipient})
	return f.err
}

type trackedEvent struct {
	name  string
	props map[string]string
}

type fakeTracker struct {
	events []trackedEvent
}

func (f *fakeTracker) Track(_ context.Context, name string, props map[string]string) {
	f.events = append(f.events, trackedEvent{name, props})
}

// sendFailure stands in for a provider error type.
type sendFailure struct{ msg string }

func (e *sendFailure) Error() string { return e.msg }

var testTemplates = Templates{InitialPassword: "initial-password", EnableUser: "enable-user", VerifyEmail: "verify-email"}

func newTestService(tokens *fakeTokens, sender *fakeSender, tracker *fakeTracker, supportLink string) *Service {
	return NewService(Config{
		AuthBaseURI: "https://sign-in.example.gov.uk/auth/",
		SupportLink: supportLink,
		Templates:   testTemplates,
	}, tokens, sender, tracker, zap.NewNop())
}

var prisonUser = identity.PrisonUser{Username: "LSA_USER", StaffID: 7, FirstName: "LOCAL", LastName: "ADMIN", Email: "lsa@justice.gov.uk"}

func TestNewPrisonUserNotification(t *testing.T) {
	tokens := &fakeTokens{token: "abc-123"}
	sender := &fakeSender{}
	tracker := &fakeTracker{}
	svc := newTestService(tokens, sender, tracker, "https://support.example.gov.uk")

	err := svc.NewPrisonUserNotification(context.Background(), prisonUser, EventPrisonUserCreate)
	require.NoError(t, err)

	require.Len(t, tokens.newReqs, 1)
	assert.Equal(t, identity.SourceNomis, tokens.newReqs[0].Source)

	require.Len(t, sender.sent, 1)
	s := sender.sent[0]
	assert.Equal(t, "initial-password", s.templateID)
	assert.Equal(t, "lsa@justice.gov.uk", s.recipient)
	assert.Equal(t, map[string]string{
		"firstName":   "Local",
		"fullName":    "Local Admin",
		"resetLink":   "https://sign-in.example.gov.uk/auth/initial-password?token=abc-123",
		"supportLink": "https://support.example.gov.uk",
	}, s.params)
	assert.Empty(t, tracker.events)
}

func TestSendFailureIsTrackedAndReturned(t *testing.T) {
	cause := &sendFailure{msg: "provider rejected message"}
	tracker := &fakeTracker{}
	svc := newTestService(&fakeTokens{token: "t"}, &fakeSender{err: cause}, tracker, "")
	ctx := middleware.WithCaller(context.Background(), middleware.Caller{Username: "CENTRAL_ADMIN"})

	err := svc.NewPrisonUserNotification(ctx, prisonUser, EventPrisonUserCreate)

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	var target *sendFailure
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, apperr.KindNotificationSendFailure, apperr.KindOf(err))

	require.Len(t, tracker.events, 1)
	ev := tracker.events[0]
	assert.Equal(t, "DPSUserCreateFailure", ev.name)
	assert.Equal(t, map[string]string{
		"username": "LSA_USER",
		"reason":   "sendFailure",
		"admin":    "CENTRAL_ADMIN",
	}, ev.props)
}

func TestTokenFailureSendsNothing(t *testing.T) {
	tokenErr := apperr.Unavailable("auth", 503, nil)
	sender := &fakeSender{}
	tracker := &fakeTracker{}
	svc := newTestService(&fakeTokens{err: tokenErr}, sender, tracker, "")

	err := svc.NewExternalUserNotification(context.Background(), identity.ExternalUser{UserID: uuid.New(), Username: "BOB"}, EventExternalUserCreate)

	assert.ErrorIs(t, err, tokenErr)
	assert.Empty(t, sender.sent)
	assert.Empty(t, tracker.events)
}

func TestNewExternalUserNotificationUsesResetToken(t *testing.T) {
	id := uuid.New()
	tokens := &fakeTokens{token: "reset"}
	sender := &fakeSender{}
	svc := newTestService(tokens, sender, &fakeTracker{}, "")

	err := svc.NewExternalUserNotification(context.Background(), identity.ExternalUser{
		UserID: id, Username: "BOB@X.COM", Email: "bob@x.com", FirstName: "Bob", LastName: "Smith",
	}, EventExternalUserCreate)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{id}, tokens.resetIDs)
	assert.Equal(t, "https://sign-in.example.gov.uk/auth/initial-password?token=reset", sender.sent[0].params["resetLink"])
	assert.NotContains(t, sender.sent[0].params, "supportLink")
}

func TestLinkCarriesTokenVerbatim(t *testing.T) {
	tokens := &fakeTokens{token: "a1b2+c3/d4="}
	sender := &fakeSender{}
	svc := newTestService(tokens, sender, &fakeTracker{}, "")

	link, err := svc.VerifyEmailNotification(context.Background(), VerifyEmail{
		Username: "BOB", FirstName: "Bob", FullName: "Bob Smith", Email: "new@x.com", Source: identity.SourceAuth,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://sign-in.example.gov.uk/auth/verify-email-confirm?token=a1b2+c3/d4=", link)
	assert.Equal(t, link, sender.sent[0].params["verifyLink"])
}

func TestExternalUserEnabledNotification(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(&fakeTokens{}, sender, &fakeTracker{}, "https://support")

	require.NoError(t, svc.ExternalUserEnabledNotification(context.Background(), EnabledUser{Username: "BOB", FirstName: "Bob", Email: "bob@x.com"}))
	require.NoError(t, svc.ExternalUserEnabledNotification(context.Background(), EnabledUser{Username: "NOMAIL"}))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "enable-user", sender.sent[0].templateID)
	assert.Equal(t, map[string]string{
		"firstName":   "Bob",
		"username":    "BOB",
		"signinUrl":   "https://sign-in.example.gov.uk/auth/",
		"supportLink": "https://support",
	}, sender.sent[0].params)
}

func TestVerifyEmailNotification(t *testing.T) {
	tokens := &fakeTokens{token: "verify"}
	sender := &fakeSender{}
	svc := newTestService(tokens, sender, &fakeTracker{}, "")

	link, err := svc.VerifyEmailNotification(context.Background(), VerifyEmail{
		Username: "BOB", FirstName: "Bob", FullName: "Bob Smith", Email: "new@x.com", Source: identity.SourceAuth,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://sign-in.example.gov.uk/auth/verify-email-confirm?token=verify", link)
	assert.Equal(t, auth.EmailTypePrimary, tokens.typeReqs[0].EmailType)
	assert.Equal(t, "verify-email", sender.sent[0].templateID)
	assert.Equal(t, link, sender.sent[0].params["verifyLink"])
}

func TestCauseName(t *testing.T) {
	assert.Equal(t, "sendFailure", causeName(&sendFailure{}))
	assert.Equal(t, "sendFailure", causeName(apperr.Wrap(apperr.KindInternal, &sendFailure{}, "x")))
}
