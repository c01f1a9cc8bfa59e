package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/statusgraph/internal/dto"
	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
	"github.com/noah-isme/statusgraph/pkg/response"
)

type quoteService interface {
	Get(ctx context.Context, quotingStatusID, viewerID int64) (*models.QuoteView, error)
	ListForStatus(ctx context.Context, quotedStatusID, viewerID, maxID int64, limit int) (*models.QuotePage, error)
	Request(ctx context.Context, quotingStatusID, quotedStatusID, actorID int64) (*models.QuoteView, error)
	Approve(ctx context.Context, quotingStatusID, actorID int64) (*models.QuoteView, error)
	Reject(ctx context.Context, quotingStatusID, actorID int64) (*models.QuoteView, error)
	Revoke(ctx context.Context, quotingStatusID, actorID int64) (*models.QuoteView, error)
}

// QuoteHandler exposes quote request and approval endpoints.
type QuoteHandler struct {
	service quoteService
}

// NewQuoteHandler builds a new handler.
func NewQuoteHandler(service quoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// List godoc
// @Summary List quotes of a status
// @Description The quoted author sees every quote, others only accepted ones.
// @Tags Quotes
// @Produce json
// @Param id path int true "Quoted status ID"
// @Param max_id query int false "Return quotes older than this id"
// @Param limit query int false "Page size (max 80)"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id}/quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	statusID, err := statusIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.QuoteListQuery
	if err := bindQuery(c, &query, "invalid quote list query"); err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.service.ListForStatus(c.Request.Context(), statusID, viewerID(c), query.MaxID, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &models.Pagination{Limit: query.Limit, NextMaxID: page.NextMaxID})
}

// Get godoc
// @Summary Quote embedded by a status
// @Tags Quotes
// @Produce json
// @Param id path int true "Quoting status ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /statuses/{id}/quote [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	statusID, err := statusIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), statusID, viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Request godoc
// @Summary Request to quote another status
// @Tags Quotes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quoting status ID"
// @Param payload body dto.CreateQuoteRequest true "Quoted status"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.ErrorEnvelope
// @Router /statuses/{id}/quote [post]
func (h *QuoteHandler) Request(c *gin.Context) {
	statusID, err := statusIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateQuoteRequest
	if err := bindJSON(c, &req, "invalid quote payload"); err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Request(c.Request.Context(), statusID, req.QuotedStatusID, viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Approve godoc
// @Summary Approve a pending quote
// @Tags Quotes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quoting status ID"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id}/quote/approve [post]
func (h *QuoteHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a pending quote
// @Tags Quotes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quoting status ID"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id}/quote/reject [post]
func (h *QuoteHandler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

// Revoke godoc
// @Summary Revoke an accepted quote
// @Tags Quotes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quoting status ID"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id}/quote/revoke [post]
func (h *QuoteHandler) Revoke(c *gin.Context) {
	h.transition(c, h.service.Revoke)
}

func (h *QuoteHandler) transition(c *gin.Context, apply func(context.Context, int64, int64) (*models.QuoteView, error)) {
	statusID, err := statusIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor := viewerID(c)
	if actor == 0 {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := apply(c.Request.Context(), statusID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
