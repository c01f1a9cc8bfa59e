package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/statusgraph/internal/dto"
	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
	"github.com/noah-isme/statusgraph/pkg/quotepolicy"
	"github.com/noah-isme/statusgraph/pkg/response"
)

type policyService interface {
	Get(ctx context.Context, statusID, viewerID int64) (*dto.QuoteApproval, error)
	ChangePolicy(ctx context.Context, statusID int64, policy quotepolicy.Policy, actorID int64) (*models.Status, error)
}

// PolicyHandler exposes the quote approval policy of a status.
type PolicyHandler struct {
	service policyService
}

// NewPolicyHandler builds a new handler.
func NewPolicyHandler(service policyService) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// Get godoc
// @Summary Quote approval policy of a status
// @Tags Quotes
// @Produce json
// @Param id path int true "Status ID"
// @Success 200 {object} response.Envelope{data=dto.QuoteApproval}
// @Router /statuses/{id}/quote_approval [get]
func (h *PolicyHandler) Get(c *gin.Context) {
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

// Update godoc
// @Summary Change who may quote a status
// @Tags Quotes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Status ID"
// @Param payload body dto.UpdateQuoteApprovalRequest true "New policy"
// @Success 200 {object} response.Envelope{data=dto.QuoteApproval}
// @Router /statuses/{id}/quote_approval [put]
func (h *PolicyHandler) Update(c *gin.Context) {
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
	var req dto.UpdateQuoteApprovalRequest
	if err := bindJSON(c, &req, "invalid quote approval payload"); err != nil {
		response.Error(c, err)
		return
	}
	policy, err := quotepolicy.FromWire(req.Automatic, req.Manual)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
		return
	}
	if _, err := h.service.ChangePolicy(c.Request.Context(), statusID, policy, actor); err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), statusID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
