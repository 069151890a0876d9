package delius

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector/connectortest"
	"github.com/dhawalhost/manageusers/pkg/apperr"
)

func TestFindUserByUsernameSkipsEmails(t *testing.T) {
	c, rec := connectortest.NewUpstream(t, "delius", nil)
	conn := New(c, zap.NewNop())

	u, err := conn.FindUserByUsername(context.Background(), "bob@justice.gov.uk")

	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, rec.Calls())
}

func TestFindUserByUsernameNormalizes(t *testing.T) {
	c, rec := connectortest.NewUpstream(t, "delius", func(w http.ResponseWriter, r *http.Request) {
		connectortest.JSON(w, http.StatusOK, map[string]any{
			"userId":    "2500077027",
			"username":  "bobSmith",
			"firstName": "Bob",
			"surname":   "Smith",
			"email":     "Bob.O’Brien@Probation.Gov.UK",
			"enabled":   true,
		})
	})
	conn := New(c, zap.NewNop())

	u, err := conn.FindUserByUsername(context.Background(), "bobSmith")
	require.NoError(t, err)
	require.NotNil(t, u)

	assert.Equal(t, "BOBSMITH", u.Username)
	assert.Equal(t, "bob.o'brien@probation.gov.uk", u.Email)
	assert.Equal(t, 1, rec.Count(http.MethodGet, "/secure/users/bobSmith/details"))
}

func TestFindUserByUsernameErrors(t *testing.T) {
	c, _ := connectortest.NewUpstream(t, "delius", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/secure/users/MISSING/details" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	conn := New(c, zap.NewNop())

	u, err := conn.FindUserByUsername(context.Background(), "MISSING")
	assert.NoError(t, err)
	assert.Nil(t, u)

	_, err = conn.FindUserByUsername(context.Background(), "BROKEN")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstreamUnavailable))
}
