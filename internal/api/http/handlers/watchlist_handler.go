package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coverage-service/internal/api/dto"
	"github.com/spec-kit/coverage-service/internal/domain"
	"github.com/spec-kit/coverage-service/internal/service"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

// WatchlistService manages watches for the acting user.
type WatchlistService interface {
	AddWatch(ctx context.Context, actor domain.Identity, input service.WatchInput) (*domain.WatchlistEntry, error)
	RemoveWatch(ctx context.Context, actor domain.Identity, watchID string) error
	ListWatches(ctx context.Context, actor domain.Identity) ([]domain.WatchlistEntry, error)
}

// WatchlistHandler serves /watchlist.
type WatchlistHandler struct {
	service WatchlistService
}

// NewWatchlistHandler constructs handler.
func NewWatchlistHandler(watchlistService WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{service: watchlistService}
}

// List GET /watchlist.
func (h *WatchlistHandler) List(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListWatches(c.UserContext(), identity)
	if err != nil {
		return err
	}
	items := make([]dto.WatchResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewWatchResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Add POST /watchlist.
func (h *WatchlistHandler) Add(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AddWatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.AddWatch(c.UserContext(), identity, service.WatchInput{
		ProductID:   req.ProductID,
		ScopeLevel:  req.ScopeLevel,
		MarketID:    req.MarketID,
		NotifyEmail: req.NotifyEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewWatchResponse(entry)})
}

// Remove DELETE /watchlist/:id.
func (h *WatchlistHandler) Remove(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveWatch(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
