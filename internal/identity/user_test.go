package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGenericUserIdentifiersBySource(t *testing.T) {
	id := uuid.MustParse("5105a589-75b3-4ca0-9433-b96228c1c8f3")
	tests := []struct {
		name      string
		user      SourceUser
		source    AuthSource
		wantUUID   bool
		wantStaff  bool
		wantUserID string
	}{
		{"nomis", PrisonUser{Username: "BOB", StaffID: 42, FirstName: "BOB", LastName: "SMITH", Enabled: true}, SourceNomis, false, true, "42"},
		{"auth", ExternalUser{UserID: id, Username: "BOB@X.GOV.UK", FirstName: "Bob", LastName: "Smith"}, SourceAuth, true, false, id.String()},
		{"delius", DeliusUser{UserID: "123", Username: "BOBSMITH"}, SourceDelius, false, false, "123"},
		{"azuread", AzureUser{Username: id.String(), Email: "bob@justice.gov.uk"}, SourceAzureAD, false, false, id.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.user.ToGenericUser()
			assert.Equal(t, tt.source, g.AuthSource)
			assert.Equal(t, tt.wantUUID, g.UUID != nil)
			assert.Equal(t, tt.wantStaff, g.StaffID != nil)
			assert.Equal(t, tt.wantUserID, g.UserID)
		})
	}
}

func TestPrisonUserNameIsCapitalized(t *testing.T) {
	g := PrisonUser{Username: "BOB", StaffID: 42, FirstName: "BOB", LastName: "SMITH"}.ToGenericUser()

	assert.Equal(t, "Bob Smith", g.Name)
	assert.Equal(t, "42", g.UserID)
	require.NotNil(t, g.StaffID)
	assert.EqualValues(t, 42, *g.StaffID)
}

func TestEmailAddressVerification(t *testing.T) {
	assert.False(t, PrisonUser{Username: "BOB"}.EmailAddress().Verified)
	assert.True(t, PrisonUser{Username: "BOB", Email: "b@justice.gov.uk"}.EmailAddress().Verified)
	assert.False(t, ExternalUser{Username: "B", Email: "b@x.com"}.EmailAddress().Verified)
}

func TestParseAuthSource(t *testing.T) {
	src, err := ParseAuthSource("NOMIS")
	require.NoError(t, err)
	assert.Equal(t, SourceNomis, src)

	_, err = ParseAuthSource("ldap")
	assert.Error(t, err)
}
