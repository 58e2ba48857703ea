package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestShareClassStore_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewValuationStore(pool).Insert(ctx, testValuation("val-001")))

	store := NewShareClassStore(pool)

	classes := []domain.ShareClass{
		{
			ID:                  "series-a",
			Name:                "Series A Preferred",
			Type:                domain.ShareTypePreferred,
			SharesOutstanding:   decimal.NewFromInt(1_000_000),
			PricePerShare:       mustDec(t, "1.25"),
			RoundDate:           1_704_067_200_000,
			Seniority:           1,
			LiquidationMultiple: decimal.NewFromInt(1),
			PreferenceType:      domain.PreferenceParticipatingCapped,
			ParticipationCap:    mustDec(t, "2.5"),
			ConversionRatio:     decimal.NewFromInt(1),
			DividendsDeclared:   true,
			DividendRate:        mustDec(t, "0.08"),
			DividendType:        domain.DividendCumulative,
			Compounding:         true,
		},
		{
			ID:                "common",
			Name:              "Common Stock",
			Type:              domain.ShareTypeCommon,
			SharesOutstanding: decimal.NewFromInt(4_000_000),
			ConversionRatio:   decimal.NewFromInt(1),
		},
	}
	require.NoError(t, store.InsertBulk(ctx, "val-001", classes))

	got, err := store.GetByValuation(ctx, "val-001")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// class_id ASC
	assert.Equal(t, "common", got[0].ID)
	assert.Equal(t, "series-a", got[1].ID)

	a := got[1]
	assert.Equal(t, domain.ShareTypePreferred, a.Type)
	assert.Equal(t, domain.PreferenceParticipatingCapped, a.PreferenceType)
	assert.Equal(t, domain.DividendCumulative, a.DividendType)
	assert.Equal(t, 1, a.Seniority)
	assert.True(t, a.Compounding)
	assert.True(t, a.PricePerShare.Equal(mustDec(t, "1.25")))
	assert.True(t, a.ParticipationCap.Equal(mustDec(t, "2.5")))
	assert.True(t, a.DividendRate.Equal(mustDec(t, "0.08")))

	c := got[0]
	assert.Equal(t, domain.ShareTypeCommon, c.Type)
	assert.True(t, c.SharesOutstanding.Equal(decimal.NewFromInt(4_000_000)))
	assert.False(t, c.DividendsDeclared)
}

func TestShareClassStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewValuationStore(pool).Insert(ctx, testValuation("val-001")))

	store := NewShareClassStore(pool)

	first := []domain.ShareClass{{
		ID: "series-a", Type: domain.ShareTypePreferred,
		SharesOutstanding: decimal.NewFromInt(100), ConversionRatio: decimal.NewFromInt(1),
		PreferenceType: domain.PreferenceNonParticipating,
	}}
	require.NoError(t, store.InsertBulk(ctx, "val-001", first))

	// Second batch collides on series-a; the whole batch must be rolled back.
	second := []domain.ShareClass{
		{
			ID: "series-b", Type: domain.ShareTypePreferred,
			SharesOutstanding: decimal.NewFromInt(200), ConversionRatio: decimal.NewFromInt(1),
			PreferenceType: domain.PreferenceNonParticipating,
		},
		{
			ID: "series-a", Type: domain.ShareTypePreferred,
			SharesOutstanding: decimal.NewFromInt(100), ConversionRatio: decimal.NewFromInt(1),
			PreferenceType: domain.PreferenceNonParticipating,
		},
	}
	assert.ErrorIs(t, store.InsertBulk(ctx, "val-001", second), storage.ErrDuplicateKey)

	got, err := store.GetByValuation(ctx, "val-001")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "series-a", got[0].ID)
}

func TestOptionGrantStore_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewValuationStore(pool).Insert(ctx, testValuation("val-001")))

	store := NewOptionGrantStore(pool)

	grants := []domain.OptionGrant{
		{
			ID: "opt-2024", Name: "2024 Employee Pool", Kind: domain.GrantOption,
			NumOptions: decimal.NewFromInt(250_000), ExercisePrice: mustDec(t, "0.40"),
		},
		{
			ID: "rsu-exec", Name: "Executive RSUs", Kind: domain.GrantRSU,
			NumOptions: decimal.NewFromInt(50_000), ExercisePrice: decimal.Zero,
		},
	}
	require.NoError(t, store.InsertBulk(ctx, "val-001", grants))

	got, err := store.GetByValuation(ctx, "val-001")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// grant_id ASC
	assert.Equal(t, "opt-2024", got[0].ID)
	assert.Equal(t, domain.GrantOption, got[0].Kind)
	assert.True(t, got[0].ExercisePrice.Equal(mustDec(t, "0.40")))

	assert.Equal(t, "rsu-exec", got[1].ID)
	assert.Equal(t, domain.GrantRSU, got[1].Kind)
	assert.True(t, got[1].ExercisePrice.IsZero())
}

func TestOptionGrantStore_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewValuationStore(pool).Insert(ctx, testValuation("val-001")))

	store := NewOptionGrantStore(pool)

	grant := []domain.OptionGrant{{
		ID: "opt-1", Kind: domain.GrantOption,
		NumOptions: decimal.NewFromInt(100), ExercisePrice: decimal.NewFromInt(1),
	}}
	require.NoError(t, store.InsertBulk(ctx, "val-001", grant))
	assert.ErrorIs(t, store.InsertBulk(ctx, "val-001", grant), storage.ErrDuplicateKey)
}
