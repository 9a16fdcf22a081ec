package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/coverage-service/internal/domain"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

func TestCatalogReads(t *testing.T) {
	etl := &fakeEtlRepo{statuses: []domain.EtlStatus{{JobName: "coverage_daily", Status: domain.EtlSucceeded, RowsLoaded: 1200}}}
	svc := NewCatalogService(&fakeDB{}, newFakeProductRepo("P1", "P2"), etl, nil)
	ctx := context.Background()

	p, err := svc.GetProduct(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, "Product P2", p.Name)

	_, err = svc.GetProduct(ctx, "P3")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	products, err := svc.ListProducts(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	statuses, err := svc.ListEtlStatus(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, domain.EtlSucceeded, statuses[0].Status)

	etl.err = errors.New("boom")
	_, err = svc.ListEtlStatus(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))
}
