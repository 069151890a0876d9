package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector/connectortest"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

var testUserID = uuid.MustParse("5105a589-75b3-4ca0-9433-b96228c1c8f3")

func newRouter(svc Service, authorities ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetCaller(c, middleware.Caller{Username: "ADMIN", AuthSource: "auth", Authorities: authorities})
		c.Next()
	})
	NewHTTPHandler(svc, zap.NewNop()).RegisterRoutes(&r.RouterGroup)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreatePrisonUserRoute(t *testing.T) {
	h := newHarness(t, lsaUpstreams())
	r := newRouter(h.svc, middleware.AuthorityCreateUser)

	resp := serve(r, http.MethodPost, "/prisonusers",
		`{"username":"lsa_user","email":"lsa@justice.gov.uk","firstName":"LOCAL","lastName":"ADMIN","userType":"DPS_LSA","defaultCaseloadId":"MDI"}`)

	require.Equal(t, http.StatusCreated, resp.Code)
	var user NewPrisonUser
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &user))
	assert.Equal(t, "LSA_USER", user.Username)
	assert.Len(t, h.sender.sent, 1)
}

func TestCreatePrisonUserRouteNeedsAuthority(t *testing.T) {
	h := newHarness(t, lsaUpstreams())
	r := newRouter(h.svc, middleware.AuthorityMaintainOAuthUsers)

	resp := serve(r, http.MethodPost, "/prisonusers", `{}`)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Empty(t, h.external.Calls())
}

func TestCreatePrisonUserRouteValidationBody(t *testing.T) {
	h := newHarness(t, lsaUpstreams())
	r := newRouter(h.svc, middleware.AuthorityCreateUser)

	resp := serve(r, http.MethodPost, "/prisonusers",
		`{"username":"lsa_user","email":"lsa@gmail.com","firstName":"LOCAL","lastName":"ADMIN","userType":"DPS_LSA","defaultCaseloadId":"MDI"}`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	var body apperr.Response
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, apperr.KindValidation, body.ErrorCode)
	assert.Equal(t, "email", body.Field)
}

func TestFindUserRoute(t *testing.T) {
	h := newHarness(t, upstreams{})
	r := newRouter(h.svc)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/users/nobody", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/users/nobody?source=ldap", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/users/nobody/email", "").Code)
}

func TestUpstreamFailureHidesDetail(t *testing.T) {
	h := newHarness(t, upstreams{
		auth: func(w http.ResponseWriter, r *http.Request) {
			connectortest.JSON(w, http.StatusInternalServerError, map[string]string{"developerMessage": "ORA-00942"})
		},
	})
	r := newRouter(h.svc)

	resp := serve(r, http.MethodGet, "/users/bob", "")

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.NotContains(t, resp.Body.String(), "ORA-00942")
	assert.Contains(t, resp.Body.String(), "service unavailable: auth")
}

func TestExternalUserRoutes(t *testing.T) {
	h := newHarness(t, upstreams{
		external: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
	r := newRouter(h.svc, middleware.AuthorityGroupManager)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/externalusers/not-a-uuid/disable", `{"reason":"x"}`).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPut, "/externalusers/"+testUserID.String()+"/disable", `{"reason":"left"}`).Code)
	assert.Equal(t, 1, h.external.Count(http.MethodPut, "/users/"+testUserID.String()+"/disable"))
}
