package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Body is the standard API response envelope. Code is a stable machine-readable
// error kind clients switch on.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Error codes.
const (
	CodeValidation           = "validation_error"
	CodeInvalidState         = "invalid_state"
	CodeNotAcceptingResponse = "not_accepting_responses"
	CodeLateSubmission       = "late_submission"
	CodeAlreadyAnswered      = "already_answered"
	CodeNotFound             = "not_found"
	CodeRateLimited          = "rate_limited"
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
	CodeInternal             = "internal_error"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrValidation, http.StatusBadRequest, CodeValidation},
	{models.ErrInvalidState, http.StatusConflict, CodeInvalidState},
	{models.ErrNotAcceptingResponses, http.StatusConflict, CodeNotAcceptingResponse},
	{models.ErrLateSubmission, http.StatusConflict, CodeLateSubmission},
	{models.ErrAlreadyAnswered, http.StatusConflict, CodeAlreadyAnswered},
	{models.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{models.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
}

// Error maps an engine error to its status and code. Anything unrecognised is a 500
// with a generic message so internals do not leak.
func Error(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, Body{Success: false, Error: err.Error(), Code: e.code})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: "internal error", Code: CodeInternal})
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: CodeValidation})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Code: CodeUnauthorized})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: CodeForbidden})
}
