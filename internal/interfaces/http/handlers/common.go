// Package handlers implements the gin handlers of the HTTP API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	RawResponse string `json:"raw_response,omitempty"`
}

// writeError maps err onto a status code and the standard error body.  A
// model answer that failed to parse is echoed back as raw_response.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ae *errors.AppError
	if !errors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  errors.ErrCodeInternal.String(),
		})
		return
	}

	resp := ErrorResponse{Error: ae.Message, Code: ae.Code.String()}
	if ae.Cause != nil && errors.IsUpstream(ae) {
		resp.Error = ae.Message + ": " + ae.Cause.Error()
	}
	if ae.Code == errors.ErrCodeAnnotationParse {
		resp.RawResponse = ae.Detail
	}
	c.JSON(errors.HTTPStatusForCode(ae.Code), resp)
}

func badRequest(c *gin.Context, msg string) {
	writeError(c, errors.InvalidParam(msg))
}
