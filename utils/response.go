package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/commboard/apperrors"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created returns a standard 201 response.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// RespondError maps a services error onto status and envelope code.
// Envelope codes are the status times 100 plus a discriminator.
func RespondError(ctx *gin.Context, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		Logger.Error("request failed", zap.Error(err), zap.String("path", ctx.Request.Method+" "+ctx.Request.URL.Path))
	}
	Error(ctx, status, code, apperrors.Message(err))
}

// StatusFor returns the HTTP status and envelope code for err.
func StatusFor(err error) (int, int) {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest, 40000
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized, 40100
	case apperrors.KindForbidden:
		return http.StatusForbidden, 40300
	case apperrors.KindNotFound:
		return http.StatusNotFound, 40400
	case apperrors.KindConflict:
		return http.StatusConflict, 40900
	case apperrors.KindTooLarge:
		return http.StatusRequestEntityTooLarge, 41300
	case apperrors.KindStorage:
		return http.StatusInternalServerError, 50010
	default:
		return http.StatusInternalServerError, 50000
	}
}
