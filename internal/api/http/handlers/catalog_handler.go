package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coverage-service/internal/api/dto"
	"github.com/spec-kit/coverage-service/internal/domain"
)

// CatalogService serves product and ETL metadata.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, search string, limit, offset int) ([]domain.Product, error)
	ListEtlStatus(ctx context.Context) ([]domain.EtlStatus, error)
}

// CatalogHandler serves /products and /etl.
type CatalogHandler struct {
	service CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogService CatalogService) *CatalogHandler {
	return &CatalogHandler{service: catalogService}
}

// ListProducts GET /products.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	limit, offset := pagination(c, 50)
	products, err := h.service.ListProducts(c.UserContext(), c.Query("q"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, dto.NewProductResponse(&products[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetProduct GET /products/:id.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}

// EtlStatus GET /etl/status.
func (h *CatalogHandler) EtlStatus(c *fiber.Ctx) error {
	statuses, err := h.service.ListEtlStatus(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.EtlStatusResponse, 0, len(statuses))
	for i := range statuses {
		items = append(items, dto.NewEtlStatusResponse(&statuses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
