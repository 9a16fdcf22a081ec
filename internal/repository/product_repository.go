package repository

import (
	"context"
	"strings"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// ProductRepository reads product metadata.
type ProductRepository interface {
	GetByID(ctx context.Context, q Querier, id string) (*domain.Product, error)
	List(ctx context.Context, q Querier, search string, limit, offset int) ([]domain.Product, error)
}

type productRepository struct{}

// NewProductRepository builds the repository.
func NewProductRepository() ProductRepository {
	return &productRepository{}
}

func (r *productRepository) GetByID(ctx context.Context, q Querier, id string) (*domain.Product, error) {
	const query = `
        SELECT id, name, product_area, owner, launch_stage, updated_at
        FROM product WHERE id=$1`
	var product domain.Product
	if err := q.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.ProductArea,
		&product.Owner,
		&product.LaunchStage,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, q Querier, search string, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, name, product_area, owner, launch_stage, updated_at
        FROM product
        WHERE $1 = '' OR LOWER(name) LIKE $1 OR LOWER(id) LIKE $1
        ORDER BY name ASC LIMIT $2 OFFSET $3`
	pattern := ""
	if s := strings.ToLower(strings.TrimSpace(search)); s != "" {
		pattern = "%" + s + "%"
	}
	rows, err := q.Query(ctx, query, pattern, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.ProductArea, &product.Owner, &product.LaunchStage, &product.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, product)
	}
	return result, rows.Err()
}
