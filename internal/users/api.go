package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector/externalusers"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

// HTTPHandler handles user HTTP requests.
type HTTPHandler struct {
	svc    Service
	logger *zap.Logger
}

// NewHTTPHandler creates a new user HTTP handler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers user routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("", h.findUsersByEmail)
		users.GET("/me", h.myDetails)
		users.GET("/:username", h.findUser)
		users.GET("/:username/email", h.findUserEmail)
	}

	prison := rg.Group("/prisonusers")
	{
		prison.POST("", middleware.RequireAuthority(middleware.AuthorityCreateUser), h.createPrisonUser)
		prison.GET("/reference-data/caseloads", h.getCaseloads)

		account := prison.Group("", middleware.RequireAuthority(middleware.AuthorityManageNomisUserAccount))
		account.PUT("/:username/email/sync", h.syncEmail)
		account.PUT("/:username/enable", h.enablePrisonUser)
		account.PUT("/:username/disable", h.disablePrisonUser)

		caseloads := prison.Group("", middleware.RequireAuthority(middleware.AuthorityMaintainAccessRoles, middleware.AuthorityMaintainAccessAdmin))
		caseloads.GET("/:username/caseloads", h.getUserCaseloads)
		caseloads.POST("/:username/caseloads/:caseloadId", h.addUserCaseload)
		caseloads.DELETE("/:username/caseloads/:caseloadId", h.removeUserCaseload)
	}

	external := rg.Group("/externalusers", middleware.RequireAuthority(middleware.AuthorityMaintainOAuthUsers, middleware.AuthorityGroupManager))
	{
		external.POST("", h.createExternalUser)
		external.GET("/search", h.searchExternalUsers)
		external.PUT("/:userId/enable", h.enableExternalUser)
		external.PUT("/:userId/disable", h.disableExternalUser)
		external.POST("/:userId/email", h.amendExternalUserEmail)
	}
}

func (h *HTTPHandler) source(c *gin.Context) (*identity.AuthSource, bool) {
	raw := c.Query("source")
	if raw == "" {
		return nil, true
	}
	src, err := identity.ParseAuthSource(raw)
	if err != nil {
		apperr.Respond(c, h.logger, apperr.Validation("source", err.Error()))
		return nil, false
	}
	return &src, true
}

func (h *HTTPHandler) userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		apperr.Respond(c, h.logger, apperr.Validation("userId", "userId must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) bind(c *gin.Context, body any) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		apperr.Respond(c, h.logger, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return false
	}
	return true
}

func (h *HTTPHandler) findUser(c *gin.Context) {
	source, ok := h.source(c)
	if !ok {
		return
	}
	username := c.Param("username")
	user, err := h.svc.FindUserByUsername(c.Request.Context(), username, source)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if user == nil {
		apperr.Respond(c, h.logger, apperr.NotFound("Account for username %s not found", username))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HTTPHandler) findUserEmail(c *gin.Context) {
	source, ok := h.source(c)
	if !ok {
		return
	}
	username := c.Param("username")
	email, err := h.svc.FindUserEmail(c.Request.Context(), username, source, c.Query("unverified") == "true")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if email == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, email)
}

func (h *HTTPHandler) findUsersByEmail(c *gin.Context) {
	users, err := h.svc.FindUsersByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if len(users) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *HTTPHandler) myDetails(c *gin.Context) {
	user, err := h.svc.MyDetails(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HTTPHandler) createPrisonUser(c *gin.Context) {
	var body CreatePrisonUserRequest
	if !h.bind(c, &body) {
		return
	}
	user, err := h.svc.CreatePrisonUser(c.Request.Context(), body)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *HTTPHandler) syncEmail(c *gin.Context) {
	if err := h.svc.SyncEmailWithNomis(c.Request.Context(), c.Param("username")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) enablePrisonUser(c *gin.Context) {
	if err := h.svc.EnablePrisonUser(c.Request.Context(), c.Param("username")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) disablePrisonUser(c *gin.Context) {
	if err := h.svc.DisablePrisonUser(c.Request.Context(), c.Param("username")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) getCaseloads(c *gin.Context) {
	caseloads, err := h.svc.GetCaseloads(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, caseloads)
}

func (h *HTTPHandler) getUserCaseloads(c *gin.Context) {
	caseloads, err := h.svc.GetUserCaseloads(c.Request.Context(), c.Param("username"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, caseloads)
}

func (h *HTTPHandler) addUserCaseload(c *gin.Context) {
	if err := h.svc.AddUserCaseload(c.Request.Context(), c.Param("username"), c.Param("caseloadId")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) removeUserCaseload(c *gin.Context) {
	if err := h.svc.RemoveUserCaseload(c.Request.Context(), c.Param("username"), c.Param("caseloadId")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) createExternalUser(c *gin.Context) {
	var body externalusers.CreateUserRequest
	if !h.bind(c, &body) {
		return
	}
	id, err := h.svc.CreateExternalUser(c.Request.Context(), body)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, id)
}

func (h *HTTPHandler) searchExternalUsers(c *gin.Context) {
	var f externalusers.SearchFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		apperr.Respond(c, h.logger, apperr.Wrap(apperr.KindValidation, err, "invalid search parameters"))
		return
	}
	page, err := h.svc.SearchExternalUsers(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HTTPHandler) enableExternalUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.svc.EnableExternalUser(c.Request.Context(), id); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) disableExternalUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !h.bind(c, &body) {
		return
	}
	if err := h.svc.DisableExternalUser(c.Request.Context(), id, body.Reason); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) amendExternalUserEmail(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if !h.bind(c, &body) {
		return
	}
	if err := h.svc.AmendExternalUserEmail(c.Request.Context(), id, body.Email); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
