package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/coverage-service/internal/domain"
	"github.com/spec-kit/coverage-service/internal/repository"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

// WatchlistService manages product watches for the acting user.
type WatchlistService struct {
	db        repository.Querier
	watchlist repository.WatchlistRepository
	products  repository.ProductRepository
	logger    *zap.Logger
}

// WatchInput describes a new watch. The market is optional; an empty scope
// level watches every market of the product.
type WatchInput struct {
	ProductID   string
	ScopeLevel  string
	MarketID    string
	NotifyEmail string
}

// NewWatchlistService constructs the service.
func NewWatchlistService(db repository.Querier, watchlist repository.WatchlistRepository, products repository.ProductRepository, logger *zap.Logger) *WatchlistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatchlistService{db: db, watchlist: watchlist, products: products, logger: logger}
}

// AddWatch subscribes the acting user to a product.
func (s *WatchlistService) AddWatch(ctx context.Context, actor domain.Identity, input WatchInput) (*domain.WatchlistEntry, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, apperrors.NewValidationError("product_id required", map[string]any{"missing": []string{"product_id"}})
	}
	entry := &domain.WatchlistEntry{UserID: actor.UserID, ProductID: productID}
	if strings.TrimSpace(input.ScopeLevel) != "" || strings.TrimSpace(input.MarketID) != "" {
		market, err := domain.NewMarketRef(input.ScopeLevel, input.MarketID)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid market", map[string]any{"market": err.Error()})
		}
		entry.Market = &market
	}

	email := strings.TrimSpace(input.NotifyEmail)
	if email == "" {
		email = actor.Email
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, apperrors.NewValidationError("notify_email must be a valid address", map[string]any{"notify_email": email})
	}
	entry.NotifyEmail = addr.Address

	if _, err := s.products.GetByID(ctx, s.db, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("product", map[string]any{"product_id": productID})
		}
		s.logger.Error("product lookup failed", zap.String("product_id", productID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("load product", err)
	}

	if err := s.watchlist.Create(ctx, s.db, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateWatch) {
			return nil, apperrors.NewConflict("already watching", map[string]any{"product_id": productID})
		}
		s.logger.Error("create watch failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("create watch", err)
	}
	return entry, nil
}

// RemoveWatch deletes one of the acting user's watches.
func (s *WatchlistService) RemoveWatch(ctx context.Context, actor domain.Identity, watchID string) error {
	if !isUUID(watchID) {
		return apperrors.NewNotFound("watch", map[string]any{"watch_id": watchID})
	}
	if err := s.watchlist.Delete(ctx, s.db, actor.UserID, watchID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("watch", map[string]any{"watch_id": watchID})
		}
		s.logger.Error("delete watch failed", zap.String("watch_id", watchID), zap.Error(err))
		return apperrors.NewPersistenceError("delete watch", err)
	}
	return nil
}

// ListWatches returns the acting user's watches.
func (s *WatchlistService) ListWatches(ctx context.Context, actor domain.Identity) ([]domain.WatchlistEntry, error) {
	entries, err := s.watchlist.ListByUser(ctx, s.db, actor.UserID)
	if err != nil {
		s.logger.Error("list watches failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("list watches", err)
	}
	return entries, nil
}
