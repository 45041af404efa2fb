package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: "ok", Data: data})
}

// SuccessMessage is Success with a user-facing message instead of "ok".
func SuccessMessage(c *gin.Context, message string, data interface{}) {
	if message == "" {
		message = "ok"
	}
	c.JSON(http.StatusOK, APIResponse{Code: 0, Message: message, Data: data})
}

// Result writes data with an explicit status. Codes mirror the status for
// failures and are 0 otherwise.
func Result(c *gin.Context, httpStatus int, message string, data interface{}) {
	code := 0
	if httpStatus >= http.StatusBadRequest {
		code = httpStatus
	}
	c.JSON(httpStatus, APIResponse{Code: code, Message: message, Data: data})
}

func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, APIResponse{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, 400, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, 401, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, 403, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, 404, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, 500, message)
}
