package session

import (
	"context"
	"testing"

	"commerce-pricing/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *domain.CartState {
	state := domain.NewCartState()
	state.Items = append(state.Items, domain.LineItem{
		ID:                  "laptop",
		Name:                "Laptop",
		Tags:                []string{"electronics"},
		UnitPrice:           decimal.NewFromInt(1000),
		Quantity:            2,
		BaseAmount:          decimal.NewFromInt(2000),
		Discount:            decimal.NewFromInt(300),
		DiscountType:        domain.KindAbsolute,
		DiscountedUnitPrice: decimal.NewFromInt(700),
		FinalAmount:         decimal.NewFromInt(1400),
	}, domain.LineItem{
		ID:           "sticker",
		Name:         "Sticker",
		Quantity:     1,
		IsGift:       true,
		GiftQuantity: 1,
	})
	state.SuggestQueue = append(state.SuggestQueue, "case")
	state.Suggested = []string{"bag"}
	state.AuxCharges["delivery"] = decimal.RequireFromString("4.99")
	state.PromoCode = "WELCOME20"
	return state
}

func TestMemoryRepo_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	_, err := repo.Load(ctx, "s1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "s1", sampleState()))

	got, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, domain.KindAbsolute, got.Items[0].DiscountType)
	assert.Equal(t, domain.KindUnknown, got.Items[1].DiscountType)
	assert.True(t, got.Items[1].IsGift)
	assert.Equal(t, 1, got.Items[1].GiftQuantity)
	assert.Equal(t, []string{"bag"}, got.Suggested)
	assert.True(t, got.Items[0].FinalAmount.Equal(decimal.NewFromInt(1400)))
	assert.Equal(t, []string{"case"}, got.SuggestQueue)
	assert.True(t, got.AuxCharges["delivery"].Equal(decimal.RequireFromString("4.99")))
	assert.Equal(t, "WELCOME20", got.PromoCode)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepo_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	require.NoError(t, repo.Save(ctx, "s1", sampleState()))

	first, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	first.Items[0].Quantity = 99
	first.SuggestQueue = first.SuggestQueue[:0]

	second, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Items[0].Quantity)
	assert.Len(t, second.SuggestQueue, 1)
}

func TestNormalize_FillsNilCollections(t *testing.T) {
	state := &domain.CartState{}
	normalize(state)

	assert.NotNil(t, state.Items)
	assert.NotNil(t, state.SuggestQueue)
	assert.NotNil(t, state.AuxCharges)
}
