package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

func shareClass(id string) domain.ShareClass {
	return domain.ShareClass{
		ID:                id,
		Name:              id,
		Type:              domain.ShareTypeCommon,
		SharesOutstanding: decimal.NewFromInt(1000),
	}
}

func TestShareClassStoreInsertBulkAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewShareClassStore()

	err := store.InsertBulk(ctx, "val-1", []domain.ShareClass{shareClass("b"), shareClass("a")})
	require.NoError(t, err)

	got, err := store.GetByValuation(ctx, "val-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	empty, err := store.GetByValuation(ctx, "val-missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestShareClassStoreDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewShareClassStore()

	require.NoError(t, store.InsertBulk(ctx, "val-1", []domain.ShareClass{shareClass("a")}))

	err := store.InsertBulk(ctx, "val-1", []domain.ShareClass{shareClass("b"), shareClass("a")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Failed batch must not leave partial rows behind
	got, err := store.GetByValuation(ctx, "val-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Same id under another valuation is fine
	assert.NoError(t, store.InsertBulk(ctx, "val-2", []domain.ShareClass{shareClass("a")}))
}

func TestShareClassStoreInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewShareClassStore()

	assert.ErrorIs(t, store.InsertBulk(ctx, "", []domain.ShareClass{shareClass("a")}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertBulk(ctx, "val-1", []domain.ShareClass{{}}), storage.ErrInvalidInput)
}

func TestOptionGrantStoreInsertBulkAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewOptionGrantStore()

	grants := []domain.OptionGrant{
		{ID: "pool-b", NumOptions: decimal.NewFromInt(100), Kind: domain.GrantOption},
		{ID: "pool-a", NumOptions: decimal.NewFromInt(200), Kind: domain.GrantRSU},
	}
	require.NoError(t, store.InsertBulk(ctx, "val-1", grants))

	got, err := store.GetByValuation(ctx, "val-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pool-a", got[0].ID)
	assert.Equal(t, "pool-b", got[1].ID)

	err = store.InsertBulk(ctx, "val-1", []domain.OptionGrant{{ID: "pool-a"}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestValuationStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewValuationStore()

	v := &domain.Valuation{ValuationID: "val-1", CompanyID: "co-1", Name: "FY2026 409A"}
	require.NoError(t, store.Insert(ctx, v))
	assert.ErrorIs(t, store.Insert(ctx, v), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "val-1")
	require.NoError(t, err)
	assert.Equal(t, "co-1", got.CompanyID)

	_, err = store.GetByID(ctx, "val-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, &domain.Valuation{ValuationID: "val-0"}))
	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "val-0", all[0].ValuationID)
	assert.Equal(t, "val-1", all[1].ValuationID)
}
