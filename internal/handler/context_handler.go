package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/statusgraph/internal/dto"
	"github.com/noah-isme/statusgraph/internal/middleware"
	"github.com/noah-isme/statusgraph/internal/models"
	"github.com/noah-isme/statusgraph/pkg/response"
)

type threadContextService interface {
	Context(ctx context.Context, statusID, viewerID int64) (*models.Context, models.ContextLookup, error)
}

type replyTreeService interface {
	Tree(ctx context.Context, rootID int64, maxLevel int) ([]*models.ReplyNode, error)
}

// ContextHandler serves conversation context endpoints.
type ContextHandler struct {
	threads threadContextService
	trees   replyTreeService
}

// NewContextHandler builds a new handler.
func NewContextHandler(threads threadContextService, trees replyTreeService) *ContextHandler {
	return &ContextHandler{threads: threads, trees: trees}
}

// Context godoc
// @Summary Ancestors and descendants of a status
// @Tags Context
// @Produce json
// @Param id path int true "Status ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /statuses/{id}/context [get]
func (h *ContextHandler) Context(c *gin.Context) {
	statusID, err := statusIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, lookup, err := h.threads.Context(c.Request.Context(), statusID, viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetThreadLookup(c, lookup)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// ReplyTree godoc
// @Summary Nested replies below a root status
// @Tags Context
// @Produce json
// @Param id path int true "Root status ID"
// @Param max_level query int false "Reply levels shown below the root; direct replies are level 1 (default 2)"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id}/replies/tree [get]
func (h *ContextHandler) ReplyTree(c *gin.Context) {
	statusID, err := statusIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ReplyTreeQuery
	if err := bindQuery(c, &query, "invalid reply tree query"); err != nil {
		response.Error(c, err)
		return
	}
	tree, err := h.trees.Tree(c.Request.Context(), statusID, query.MaxLevel)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tree, nil)
}
