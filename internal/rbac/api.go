package rbac

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

// HTTPHandler handles role HTTP requests.
type HTTPHandler struct {
	svc    Service
	logger *zap.Logger
}

// NewHTTPHandler creates a new role HTTP handler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers role routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// Roles
	roles := rg.Group("/roles")
	{
		roles.GET("", h.getRoles)
		roles.GET("/:code", h.getRole)

		admin := roles.Group("", middleware.RequireAuthority(middleware.AuthorityRolesAdmin))
		admin.POST("", h.createRole)
		admin.PUT("/:code/name", h.updateRoleName)
		admin.PUT("/:code/description", h.updateRoleDescription)
		admin.PUT("/:code/admintype", h.updateRoleAdminTypes)
	}

	// Prison user roles
	prison := rg.Group("/prisonusers", middleware.RequireAuthority(middleware.AuthorityMaintainAccessRoles, middleware.AuthorityMaintainAccessAdmin))
	{
		prison.GET("/:username/roles", h.getPrisonUserRoles)
		prison.POST("/:username/roles/:roleCode", h.addRoleToPrisonUser)
		prison.DELETE("/:username/roles/:roleCode", h.removeRoleFromPrisonUser)
	}

	// External user roles
	external := rg.Group("/externalusers", middleware.RequireAuthority(middleware.AuthorityMaintainOAuthUsers, middleware.AuthorityGroupManager))
	{
		external.GET("/:userId/roles", h.getExternalUserRoles)
		external.POST("/:userId/roles", h.addRolesToExternalUser)
		external.DELETE("/:userId/roles/:roleCode", h.removeRoleFromExternalUser)
	}
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

func (h *HTTPHandler) getRoles(c *gin.Context) {
	var codes []string
	for _, v := range c.QueryArray("adminTypes") {
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	}
	types, err := parseAdminTypes(codes)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	roles, err := h.svc.GetRoles(c.Request.Context(), types)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *HTTPHandler) getRole(c *gin.Context) {
	role, err := h.svc.GetRole(c.Request.Context(), c.Param("code"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

func (h *HTTPHandler) createRole(c *gin.Context) {
	var body CreateRoleRequest
	if !h.bind(c, &body) {
		return
	}
	if err := h.svc.CreateRole(c.Request.Context(), body); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *HTTPHandler) updateRoleName(c *gin.Context) {
	var body struct {
		RoleName string `json:"roleName"`
	}
	if !h.bind(c, &body) {
		return
	}
	if err := h.svc.UpdateRoleName(c.Request.Context(), c.Param("code"), body.RoleName); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) updateRoleDescription(c *gin.Context) {
	var body struct {
		RoleDescription string `json:"roleDescription"`
	}
	if !h.bind(c, &body) {
		return
	}
	if err := h.svc.UpdateRoleDescription(c.Request.Context(), c.Param("code"), body.RoleDescription); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) updateRoleAdminTypes(c *gin.Context) {
	var body struct {
		AdminType []string `json:"adminType"`
	}
	if !h.bind(c, &body) {
		return
	}
	if err := h.svc.UpdateRoleAdminTypes(c.Request.Context(), c.Param("code"), body.AdminType); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) getPrisonUserRoles(c *gin.Context) {
	detail, err := h.svc.GetPrisonUserRoles(c.Request.Context(), c.Param("username"), c.Query("include-nomis-roles") == "true")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *HTTPHandler) addRoleToPrisonUser(c *gin.Context) {
	err := h.svc.AddRoleToPrisonUser(c.Request.Context(), c.Param("username"), c.Param("roleCode"), c.Query("caseloadId"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *HTTPHandler) removeRoleFromPrisonUser(c *gin.Context) {
	err := h.svc.RemoveRoleFromPrisonUser(c.Request.Context(), c.Param("username"), c.Param("roleCode"), c.Query("caseloadId"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) getExternalUserRoles(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	roles, err := h.svc.GetExternalUserRoles(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *HTTPHandler) addRolesToExternalUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var codes []string
	if !h.bind(c, &codes) {
		return
	}
	if err := h.svc.AddRolesToExternalUser(c.Request.Context(), id, codes); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *HTTPHandler) removeRoleFromExternalUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveRoleFromExternalUser(c.Request.Context(), id, c.Param("roleCode")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
