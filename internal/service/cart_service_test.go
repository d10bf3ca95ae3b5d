package service

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
)

func TestGetCartWithoutCartIsEmpty(t *testing.T) {
	f := newFixture(t)
	v, err := f.cart.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.NotNil(t, v.Items)
	assert.True(t, v.Total.IsZero())
}

func TestAddSameProductMergesQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	res, err := f.cart.AddItem(ctx, u.ID, "P1", 2, hint("Widget", 20))
	require.NoError(t, err)
	assert.Equal(t, model.Created, res.Resolution)

	res, err = f.cart.AddItem(ctx, u.ID, "P1", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Found, res.Resolution)

	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 5, res.Cart.Items[0].Quantity)
	assert.True(t, res.Cart.Total.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, res.Cart.ItemCount())
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, 1, "", 1, hint("X", 1))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.cart.AddItem(ctx, 1, "NEW", 1, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.cart.AddItem(ctx, 1, "NEW", 0, hint("X", 1))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	neg := -1
	_, err = f.cart.AddItem(ctx, 1, "NEW", 1, &model.ProductHint{Name: "X", Stock: &neg})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCartQuantityIsBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	_, err := f.cart.AddItem(ctx, u.ID, "P1", math.MaxInt, hint("Widget", 2))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	res, err := f.cart.AddItem(ctx, u.ID, "P1", model.MaxQuantity, hint("Widget", 2))
	require.NoError(t, err)
	item := res.Cart.Items[0]

	_, err = f.cart.AddItem(ctx, u.ID, "P1", 1, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.cart.UpdateItemQuantity(ctx, u.ID, item.ID, model.MaxQuantity+1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	v, err := f.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, model.MaxQuantity, v.Items[0].Quantity)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(2*model.MaxQuantity)), "total %s", v.Total)
}

func TestFirstReferenceAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	res, err := f.cart.AddItem(context.Background(), 1, "P9", 1, hint("Blue Widget", 3))
	require.NoError(t, err)
	assert.Equal(t, "general", res.Product.Category)
	assert.Equal(t, 100, res.Product.Stock)
	assert.Equal(t, "blue-widget", res.Product.Slug)
	assert.True(t, res.Product.IsActive)
}

func TestStaleItemIsDroppedAndPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	_, err := f.cart.AddItem(ctx, u.ID, "KEEP", 1, hint("Keep", 10))
	require.NoError(t, err)
	res, err := f.cart.AddItem(ctx, u.ID, "GONE", 2, hint("Gone", 7))
	require.NoError(t, err)
	require.Len(t, res.Cart.Items, 2)

	require.NoError(t, f.store.DeleteProduct(ctx, res.Product.ID))

	v, err := f.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "KEEP", v.Items[0].Product.ExternalRef)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(10)))

	raw, err := f.store.GetCartByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, raw.Items, 1, "removal must be persisted")
}

func TestUpdateRemoveClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	_, err := f.cart.UpdateItemQuantity(ctx, u.ID, 1, 2)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(f.cart.ClearCart(ctx, u.ID), apperr.KindNotFound))

	res, err := f.cart.AddItem(ctx, u.ID, "P1", 1, hint("One", 4))
	require.NoError(t, err)
	itemID := res.Cart.Items[0].ID

	v, err := f.cart.UpdateItemQuantity(ctx, u.ID, itemID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, v.Items[0].Quantity)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(24)))

	_, err = f.cart.UpdateItemQuantity(ctx, u.ID, itemID, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.cart.UpdateItemQuantity(ctx, u.ID, itemID+1000, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.cart.RemoveItem(ctx, u.ID, itemID+1000)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	v, err = f.cart.RemoveItem(ctx, u.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)

	_, err = f.cart.AddItem(ctx, u.ID, "P1", 1, nil)
	require.NoError(t, err)
	require.NoError(t, f.cart.ClearCart(ctx, u.ID))
	v, err = f.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	require.NoError(t, f.cart.ClearCart(ctx, u.ID), "an empty cart still exists")
}

func TestConcurrentAddsForOneUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.cart.AddItem(ctx, u.ID, "P1", 1, hint("One", 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := f.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 50, v.Items[0].Quantity)
}
