package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Response is the JSON body written for failed requests.
type Response struct {
	Status      int    `json:"status"`
	ErrorCode   Kind   `json:"errorCode"`
	UserMessage string `json:"userMessage"`
	Field       string `json:"field,omitempty"`
}

// FromValidator converts validator errors into a Validation error naming the
// first failing field. Other errors are returned unchanged.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	e := Validation(fe.Field(), fe.Field()+" failed '"+fe.Tag()+"' validation")
	e.Details = map[string]any{"rule": fe.Tag(), "valueType": fe.Kind().String()}
	e.Err = err
	return e
}

// Respond writes err as a JSON error response and aborts the request.
// logger may be nil.
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	status := HTTPStatus(err)
	body := Response{Status: status, ErrorCode: KindOf(err)}

	var e *Error
	if errors.As(err, &e) {
		body.UserMessage = e.Message
		body.Field = e.Field
		if e.Kind == KindUpstreamUnavailable {
			body.UserMessage = "service unavailable: " + e.Upstream
		}
	}
	if body.UserMessage == "" {
		body.UserMessage = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}
