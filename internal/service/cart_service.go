package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/lock"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/repository"
)

// CartService manages the single cart of each user. Every mutation runs
// under the user's cart lock; reads heal stale items without it because
// deleting an already deleted item is harmless.
type CartService struct {
	carts   CartStore
	catalog *CatalogService
	locker  lock.Locker
}

func NewCartService(carts CartStore, catalog *CatalogService, locker lock.Locker) *CartService {
	return &CartService{carts: carts, catalog: catalog, locker: locker}
}

// AddResult reports what AddItem put in the cart.
type AddResult struct {
	Cart       model.CartView
	Product    model.Product
	Resolution model.Resolution
}

func (s *CartService) withLock(ctx context.Context, userID uint64, fn func() error) error {
	release, err := s.locker.Lock(ctx, lock.CartKey(userID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return apperr.Conflict("Cart is being updated, please retry")
		}
		return apperr.Internal("acquire cart lock", err)
	}
	defer release()
	return fn()
}

// load returns the user's cart with stale items removed and the removal
// persisted. found is false when the user has no cart row.
func (s *CartService) load(ctx context.Context, userID uint64) (cart model.Cart, found bool, err error) {
	cart, err = s.carts.GetCartByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Cart{UserID: userID}, false, nil
	}
	if err != nil {
		return cart, false, apperr.Internal("load cart", err)
	}

	var (
		live  = cart.Items[:0:0]
		stale []uint64
	)
	for _, it := range cart.Items {
		if it.Product == nil {
			stale = append(stale, it.ID)
			continue
		}
		live = append(live, it)
	}
	if len(stale) > 0 {
		if _, err := s.carts.DeleteCartItems(ctx, cart.ID, stale...); err != nil {
			return cart, true, apperr.Internal("drop stale cart items", err)
		}
	}
	cart.Items = live
	return cart, true, nil
}

func view(c model.Cart) model.CartView {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	items := c.Items
	if items == nil {
		items = []model.CartItem{}
	}
	return model.CartView{Items: items, Total: total.Round(2)}
}

// GetCart returns the resolved cart. A user without a cart gets an empty
// view, never an error.
func (s *CartService) GetCart(ctx context.Context, userID uint64) (model.CartView, error) {
	cart, _, err := s.load(ctx, userID)
	if err != nil {
		return model.CartView{}, err
	}
	return view(cart), nil
}

// AddItem mirrors the product if needed, creates the cart on first use
// and merges the quantity into an existing item for the same product.
func (s *CartService) AddItem(ctx context.Context, userID uint64, ref string, qty int, hint *model.ProductHint) (AddResult, error) {
	if err := checkQuantity(qty); err != nil {
		return AddResult{}, err
	}
	var res AddResult
	err := s.withLock(ctx, userID, func() error {
		p, how, err := s.catalog.GetOrCreate(ctx, ref, hint)
		if err != nil {
			return err
		}
		current, _, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		for _, it := range current.Items {
			if it.ProductID == p.ID && it.Quantity+qty > model.MaxQuantity {
				return apperr.Validation(fmt.Sprintf("Cart quantity cannot exceed %d (already %d in cart)", model.MaxQuantity, it.Quantity))
			}
		}
		cart, err := s.carts.GetOrCreateCart(ctx, userID)
		if err != nil {
			return apperr.Internal("create cart", err)
		}
		if err := s.carts.AddCartItem(ctx, cart.ID, p.ID, qty); err != nil {
			return apperr.Internal("add cart item", err)
		}
		loaded, _, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		res = AddResult{Cart: view(loaded), Product: p, Resolution: how}
		return nil
	})
	return res, err
}

// UpdateItemQuantity overwrites the quantity of one cart item.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID uint64, qty int) (model.CartView, error) {
	if itemID == 0 {
		return model.CartView{}, apperr.Validation("Item ID is required")
	}
	if err := checkQuantity(qty); err != nil {
		return model.CartView{}, err
	}
	var out model.CartView
	err := s.withLock(ctx, userID, func() error {
		cart, found, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("Cart not found")
		}
		if !hasItem(cart, itemID) {
			return apperr.NotFound("Item not found in cart")
		}
		if err := s.carts.UpdateCartItemQuantity(ctx, cart.ID, itemID, qty); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("Item not found in cart")
			}
			return apperr.Internal("update cart item", err)
		}
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items[i].Quantity = qty
			}
		}
		out = view(cart)
		return nil
	})
	return out, err
}

// RemoveItem deletes one cart item.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint64) (model.CartView, error) {
	var out model.CartView
	err := s.withLock(ctx, userID, func() error {
		cart, found, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("Cart not found")
		}
		if !hasItem(cart, itemID) {
			return apperr.NotFound("Item not found in cart")
		}
		if _, err := s.carts.DeleteCartItems(ctx, cart.ID, itemID); err != nil {
			return apperr.Internal("remove cart item", err)
		}
		kept := cart.Items[:0:0]
		for _, it := range cart.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		cart.Items = kept
		out = view(cart)
		return nil
	})
	return out, err
}

// ClearCart empties the cart. The cart row stays.
func (s *CartService) ClearCart(ctx context.Context, userID uint64) error {
	return s.withLock(ctx, userID, func() error {
		cart, err := s.carts.GetCartByUser(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Cart not found")
		}
		if err != nil {
			return apperr.Internal("load cart", err)
		}
		if err := s.carts.ClearCart(ctx, cart.ID); err != nil {
			return apperr.Internal("clear cart", err)
		}
		return nil
	})
}

// checkQuantity rejects quantities outside 1..MaxQuantity.
func checkQuantity(qty int) error {
	if qty < 1 {
		return apperr.Validation("Quantity must be at least 1")
	}
	if qty > model.MaxQuantity {
		return apperr.Validation(fmt.Sprintf("Quantity cannot exceed %d", model.MaxQuantity))
	}
	return nil
}

func hasItem(c model.Cart, itemID uint64) bool {
	for _, it := range c.Items {
		if it.ID == itemID {
			return true
		}
	}
	return false
}
