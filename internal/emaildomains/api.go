package emaildomains

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

// HTTPHandler handles email domain HTTP requests.
type HTTPHandler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHTTPHandler creates a new email domain HTTP handler.
func NewHTTPHandler(svc *Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers email domain routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	domains := rg.Group("/email-domains", middleware.RequireAuthority(middleware.AuthorityMaintainEmailDomains))
	{
		domains.GET("", h.list)
		domains.POST("", h.add)
		domains.DELETE("/:id", h.delete)
	}
}

func (h *HTTPHandler) list(c *gin.Context) {
	domains, err := h.svc.List(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, domains)
}

func (h *HTTPHandler) add(c *gin.Context) {
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Respond(c, h.logger, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}
	created, err := h.svc.Add(c.Request.Context(), body)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, h.logger, apperr.Validation("id", "id must be a UUID"))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}
