package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope. Message is user-facing text, Error carries
// upstream diagnostics, Code is a stable machine-readable reason.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail sends an error envelope with the given status and reason code.
func Fail(c *gin.Context, status int, code, msg string) {
	c.JSON(status, Body{Success: false, Message: msg, Code: code})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, "bad_request", msg)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, "unauthorized", msg)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	Fail(c, http.StatusForbidden, "forbidden", msg)
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	Fail(c, http.StatusNotFound, "not_found", msg)
}

// Conflict sends 409.
func Conflict(c *gin.Context, msg string) {
	Fail(c, http.StatusConflict, "conflict", msg)
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, msg string) {
	Fail(c, http.StatusServiceUnavailable, "unavailable", msg)
}

// Internal sends 500.
func Internal(c *gin.Context, msg string) {
	Fail(c, http.StatusInternalServerError, "internal", msg)
}

// Upstream sends 500 for a failed provider call, including the provider's detail.
func Upstream(c *gin.Context, msg, detail string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Message: msg, Error: detail, Code: "upstream"})
}
