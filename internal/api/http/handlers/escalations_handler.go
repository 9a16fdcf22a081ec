package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coverage-service/internal/api/dto"
	"github.com/spec-kit/coverage-service/internal/domain"
	"github.com/spec-kit/coverage-service/internal/service"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

// EscalationService is the workflow surface the handler depends on.
type EscalationService interface {
	Submit(ctx context.Context, actor domain.Identity, input service.SubmitInput) (*domain.Escalation, error)
	UpdateStatus(ctx context.Context, actor domain.Identity, escalationID string, input service.StatusUpdateInput) (*domain.Escalation, error)
	AddComment(ctx context.Context, actor domain.Identity, escalationID, note string) (*domain.EscalationHistoryEntry, error)
	ListHistory(ctx context.Context, escalationID string) ([]domain.EscalationHistoryEntry, error)
	HistoryForMarket(ctx context.Context, productID, scopeLevel, marketID string) ([]domain.EscalationHistoryEntry, error)
	GetEscalation(ctx context.Context, escalationID string) (*domain.Escalation, error)
	ListEscalations(ctx context.Context, filter service.EscalationListFilter) ([]domain.Escalation, error)
}

// EscalationsHandler manages escalation endpoints.
type EscalationsHandler struct {
	service EscalationService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(escalationService EscalationService) *EscalationsHandler {
	return &EscalationsHandler{service: escalationService}
}

// Submit POST /escalations.
func (h *EscalationsHandler) Submit(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.SubmitEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	escalation, err := h.service.Submit(c.UserContext(), identity, service.SubmitInput{
		ProductID:              req.ProductID,
		ScopeLevel:             req.ScopeLevel,
		MarketID:               req.MarketID,
		POC:                    req.POC,
		Reason:                 req.Reason,
		ReasonType:             req.ReasonType,
		BusinessCaseURL:        req.BusinessCaseURL,
		TechPOC:                req.TechPOC,
		TechSponsor:            req.TechSponsor,
		OpsPOC:                 req.OpsPOC,
		OpsSponsor:             req.OpsSponsor,
		AdditionalStakeholders: req.AdditionalStakeholders,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewEscalationResponse(escalation)})
}

// List GET /escalations.
func (h *EscalationsHandler) List(c *fiber.Ctx) error {
	filter, err := parseEscalationQuery(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListEscalations(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewEscalationResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /escalations/:id.
func (h *EscalationsHandler) Get(c *fiber.Ctx) error {
	escalation, err := h.service.GetEscalation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationResponse(escalation)})
}

// UpdateStatus PATCH /escalations/:id/status.
func (h *EscalationsHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", map[string]any{"missing": []string{"status"}})
	}
	escalation, err := h.service.UpdateStatus(c.UserContext(), identity, c.Params("id"), service.StatusUpdateInput{
		Status:         req.Status,
		Notes:          req.Notes,
		ExpectedStatus: req.ExpectedStatus,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationResponse(escalation)})
}

// AddComment POST /escalations/:id/comments.
func (h *EscalationsHandler) AddComment(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.AddComment(c.UserContext(), identity, c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewHistoryEntryResponse(entry)})
}

// History GET /escalations/:id/history.
func (h *EscalationsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}

// HistoryForMarket GET /history?product_id=&scope_level=&market_id=.
func (h *EscalationsHandler) HistoryForMarket(c *fiber.Ctx) error {
	entries, err := h.service.HistoryForMarket(c.UserContext(), c.Query("product_id"), c.Query("scope_level"), c.Query("market_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}

func parseEscalationQuery(c *fiber.Ctx) (service.EscalationListFilter, error) {
	filter := service.EscalationListFilter{
		ProductID: optionalQuery(c, "product_id"),
		RaisedBy:  optionalQuery(c, "raised_by"),
	}
	if raw := c.Query("scope_level"); raw != "" {
		level, err := domain.ParseScopeLevel(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid scope_level", map[string]any{"scope_level": raw})
		}
		filter.ScopeLevel = &level
	}
	for _, raw := range splitList(c.Query("status")) {
		status, err := domain.ParseAppStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	from, err := parseTime(c.Query("created_from"))
	if err != nil {
		return filter, apperrors.NewValidationError("created_from must be RFC3339", nil)
	}
	to, err := parseTime(c.Query("created_to"))
	if err != nil {
		return filter, apperrors.NewValidationError("created_to must be RFC3339", nil)
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to

	filter.Limit, filter.Offset = pagination(c, 20)
	return filter, nil
}
