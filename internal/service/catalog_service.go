package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/coverage-service/internal/domain"
	"github.com/spec-kit/coverage-service/internal/repository"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

// CatalogService serves read-only product and ingestion metadata.
type CatalogService struct {
	db       repository.Querier
	products repository.ProductRepository
	etl      repository.EtlStatusRepository
	logger   *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(db repository.Querier, products repository.ProductRepository, etl repository.EtlStatusRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{db: db, products: products, etl: etl, logger: logger}
}

// GetProduct fetches one product.
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, s.db, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("product", map[string]any{"product_id": productID})
		}
		s.logger.Error("load product failed", zap.String("product_id", productID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("load product", err)
	}
	return product, nil
}

// ListProducts searches products by name or id.
func (s *CatalogService) ListProducts(ctx context.Context, search string, limit, offset int) ([]domain.Product, error) {
	products, err := s.products.List(ctx, s.db, search, limit, offset)
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		return nil, apperrors.NewPersistenceError("list products", err)
	}
	return products, nil
}

// ListEtlStatus reports data freshness per ingestion job.
func (s *CatalogService) ListEtlStatus(ctx context.Context) ([]domain.EtlStatus, error) {
	statuses, err := s.etl.List(ctx, s.db)
	if err != nil {
		s.logger.Error("list etl status failed", zap.Error(err))
		return nil, apperrors.NewPersistenceError("list etl status", err)
	}
	return statuses, nil
}
