package groups

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

// HTTPHandler handles group HTTP requests.
type HTTPHandler struct {
	svc    Service
	logger *zap.Logger
}

// NewHTTPHandler creates a new group HTTP handler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers group routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	groups := rg.Group("/groups", middleware.RequireAuthority(middleware.AuthorityMaintainOAuthUsers))
	{
		groups.POST("", h.createGroup)
		groups.GET("/:code", h.getGroup)
		groups.PUT("/:code", h.updateGroup)
		groups.DELETE("/:code", h.deleteGroup)
	}

	users := rg.Group("/externalusers", middleware.RequireAuthority(middleware.AuthorityMaintainOAuthUsers, middleware.AuthorityGroupManager))
	{
		users.GET("/:userId/groups", h.getUserGroups)
		users.POST("/:userId/groups/:groupCode", h.addGroupToUser)
		users.DELETE("/:userId/groups/:groupCode", h.removeGroupFromUser)
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

func (h *HTTPHandler) createGroup(c *gin.Context) {
	var body CreateGroupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Respond(c, h.logger, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}
	if err := h.svc.CreateGroup(c.Request.Context(), body); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *HTTPHandler) getGroup(c *gin.Context) {
	g, err := h.svc.GetGroup(c.Request.Context(), c.Param("code"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *HTTPHandler) updateGroup(c *gin.Context) {
	var body struct {
		GroupName string `json:"groupName"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Respond(c, h.logger, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}
	if err := h.svc.UpdateGroup(c.Request.Context(), c.Param("code"), body.GroupName); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) deleteGroup(c *gin.Context) {
	if err := h.svc.DeleteGroup(c.Request.Context(), c.Param("code")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *HTTPHandler) getUserGroups(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	groups, err := h.svc.GetUserGroups(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *HTTPHandler) addGroupToUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.svc.AddGroupToUser(c.Request.Context(), id, c.Param("groupCode")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) removeGroupFromUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveGroupFromUser(c.Request.Context(), id, c.Param("groupCode")); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
