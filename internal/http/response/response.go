package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/platform/apierr"
)

type APIError struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
			Details: fill.DetailsOf(err),
		},
	})
}

// RespondDomainError picks the status from the error's fill code. Internal
// errors keep their cause out of the body.
func RespondDomainError(c *gin.Context, err error) {
	ae := apierr.FromDomain(err)
	if ae.Status >= http.StatusInternalServerError && ae.Code != string(fill.CodeRetryable) {
		_ = c.Error(err)
		c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: ae.Code}})
		return
	}
	msg := err.Error()
	var de *fill.Error
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: msg, Code: ae.Code, Details: fill.DetailsOf(err)}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
