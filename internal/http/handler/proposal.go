package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"safetyagent/internal/http/middleware"
	"safetyagent/internal/model"
	"safetyagent/internal/service"
)

type createProposalRequest struct {
	Title       string               `json:"title" validate:"max=255"`
	Description string               `json:"description" validate:"max=4000"`
	DocumentID  *int64               `json:"document_id" validate:"omitempty,gt=0"`
	Items       []model.ProposedItem `json:"items" validate:"dive"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// parseID reads a positive integer :id route parameter.
func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CreateProposal submits a caller-built batch of candidate writes.
//
// @Summary Create a proposal
// @Tags proposals
// @Accept json
// @Produce json
// @Param body body createProposalRequest true "Proposal"
// @Success 201 {object} successPayload{data=model.Proposal}
// @Failure 400 {object} errorPayload
// @Router /api/safety/agent/proposals [post]
func CreateProposal(svc service.ProposalService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createProposalRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
		}

		p, err := svc.Create(c.UserContext(), middleware.ActorFromCtx(c), service.CreateProposalInput{
			Title:       req.Title,
			Description: req.Description,
			DocumentID:  req.DocumentID,
			Items:       req.Items,
			Source:      "manual",
		})
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusCreated, p)
	}
}

// ListProposals returns proposals newest first.
//
// @Summary List proposals
// @Tags proposals
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} successPayload{data=[]model.Proposal}
// @Failure 400 {object} errorPayload
// @Router /api/safety/agent/proposals [get]
func ListProposals(svc service.ProposalService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.List(c.UserContext(), c.Query("status"))
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusOK, list)
	}
}

// GetProposal returns a proposal with its items.
//
// @Summary Get a proposal
// @Tags proposals
// @Produce json
// @Param id path int true "Proposal ID"
// @Success 200 {object} successPayload{data=service.ProposalDetail}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/safety/agent/proposals/{id} [get]
func GetProposal(svc service.ProposalService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		d, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusOK, d)
	}
}

// ApproveProposal applies the allow-listed items and marks the proposal approved.
//
// @Summary Approve a proposal
// @Tags proposals
// @Produce json
// @Param id path int true "Proposal ID"
// @Success 200 {object} successPayload{data=service.ApproveResult}
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /api/safety/agent/proposals/{id}/approve [post]
func ApproveProposal(svc service.ProposalService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, err := svc.Approve(c.UserContext(), id, middleware.ActorFromCtx(c))
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusOK, res)
	}
}

// RejectProposal marks a pending proposal rejected. The body is optional.
//
// @Summary Reject a proposal
// @Tags proposals
// @Accept json
// @Produce json
// @Param id path int true "Proposal ID"
// @Param body body rejectRequest false "Reason"
// @Success 200 {object} successPayload{data=model.Proposal}
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /api/safety/agent/proposals/{id}/reject [post]
func RejectProposal(svc service.ProposalService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req rejectRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
			}
			if err := validate.Struct(req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
			}
		}

		p, err := svc.Reject(c.UserContext(), id, middleware.ActorFromCtx(c), req.Reason)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusOK, p)
	}
}

// ProposalAudit returns the audit trail of a proposal, oldest first.
//
// @Summary Proposal audit trail
// @Tags proposals
// @Produce json
// @Param id path int true "Proposal ID"
// @Success 200 {object} successPayload{data=[]model.AuditLogEntry}
// @Failure 404 {object} errorPayload
// @Router /api/safety/agent/proposals/{id}/audit [get]
func ProposalAudit(svc service.ProposalService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		entries, err := svc.AuditTrail(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return writeData(c, fiber.StatusOK, entries)
	}
}
