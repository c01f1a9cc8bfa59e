package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
)

// Envelope wraps successful payloads. Data is always present so empty
// listings render as [].
type Envelope struct {
	Data       interface{}            `json:"data"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// ErrorEnvelope wraps failures.
type ErrorEnvelope struct {
	Error *appErrors.Error `json:"error"`
}

// Thread and quote views depend on who is asking, so nothing may be shared
// between viewers by intermediaries.
func privateHeaders(c *gin.Context) {
	c.Header("Cache-Control", "private, no-store")
	c.Header("Vary", "Authorization")
}

// JSON sends a success response with optional cursor pagination and meta.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	privateHeaders(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && len(meta[0]) > 0 {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error renders err and stops the handler chain.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	privateHeaders(c)
	c.AbortWithStatusJSON(appErr.Status, ErrorEnvelope{Error: appErr})
}
