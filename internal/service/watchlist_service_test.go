package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/coverage-service/internal/domain"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

func TestWatchlistLifecycle(t *testing.T) {
	repo := &fakeWatchlistRepo{}
	svc := NewWatchlistService(&fakeDB{}, repo, newFakeProductRepo("P1"), zaptest.NewLogger(t))
	ctx := context.Background()

	all, err := svc.AddWatch(ctx, alice, WatchInput{ProductID: "P1"})
	require.NoError(t, err)
	assert.Nil(t, all.Market)
	assert.Equal(t, "alice@example.com", all.NotifyEmail)

	narrow, err := svc.AddWatch(ctx, alice, WatchInput{ProductID: "P1", ScopeLevel: "country", MarketID: "fr", NotifyEmail: "Alice <a.team@example.com>"})
	require.NoError(t, err)
	require.NotNil(t, narrow.Market)
	assert.Equal(t, domain.MarketRef{Level: domain.ScopeCountry, ID: "FR"}, *narrow.Market)
	assert.Equal(t, "a.team@example.com", narrow.NotifyEmail)

	_, err = svc.AddWatch(ctx, alice, WatchInput{ProductID: "P1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	list, err := svc.ListWatches(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	bob := domain.Identity{UserID: "bob", Email: "bob@example.com"}
	err = svc.RemoveWatch(ctx, bob, all.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "only the owner may remove")

	require.NoError(t, svc.RemoveWatch(ctx, alice, all.ID))
	list, err = svc.ListWatches(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.True(t, apperrors.HasCode(svc.RemoveWatch(ctx, alice, uuid.NewString()), apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(svc.RemoveWatch(ctx, alice, "nope"), apperrors.CodeNotFound))
}

func TestAddWatchValidation(t *testing.T) {
	svc := NewWatchlistService(&fakeDB{}, &fakeWatchlistRepo{}, newFakeProductRepo("P1"), nil)
	ctx := context.Background()

	_, err := svc.AddWatch(ctx, alice, WatchInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.AddWatch(ctx, alice, WatchInput{ProductID: "P1", ScopeLevel: "CITY"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "market id required with scope")

	_, err = svc.AddWatch(ctx, domain.Identity{UserID: "u"}, WatchInput{ProductID: "P1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "no address available")

	_, err = svc.AddWatch(ctx, alice, WatchInput{ProductID: "P2"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
