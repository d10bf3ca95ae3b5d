// Package memstore is an in-process implementation of the store
// interfaces consumed by the service layer. It backs STORAGE=memory and
// the service and handler tests. A single mutex guards all state, so each
// method is atomic in the same way the MySQL upserts are.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/repository"
)

type Store struct {
	mu sync.Mutex

	seq uint64

	users    map[uint64]model.User
	admins   map[uint64]model.Admin
	products map[uint64]model.Product
	carts    map[uint64]*model.Cart // by user id
	orders   map[uint64]model.Order
}

func New() *Store {
	return &Store{
		users:    map[uint64]model.User{},
		admins:   map[uint64]model.Admin{},
		products: map[uint64]model.Product{},
		carts:    map[uint64]*model.Cart{},
		orders:   map[uint64]model.Order{},
	}
}

func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// ---- users ----

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = repository.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = s.nextID()
	u.CreatedAt, u.UpdatedAt = now(), now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, id uint64, upd model.ProfileUpdate) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	if upd.Email != nil {
		email := repository.NormalizeEmail(*upd.Email)
		for _, other := range s.users {
			if other.ID != id && other.Email == email {
				return model.User{}, repository.ErrEmailExists
			}
		}
		u.Email = email
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Phone != nil {
		u.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		u.Address = strings.TrimSpace(*upd.Address)
	}
	u.UpdatedAt = now()
	s.users[id] = u
	return u, nil
}

// ---- admins ----

func (s *Store) GetAdminByEmail(_ context.Context, email string) (model.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, a := range s.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrNotFound
}

func (s *Store) CreateAdmin(_ context.Context, a *model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Email = repository.NormalizeEmail(a.Email)
	for _, existing := range s.admins {
		if existing.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	if a.Role == "" {
		a.Role = model.RoleAdmin
	}
	a.ID = s.nextID()
	a.CreatedAt, a.UpdatedAt = now(), now()
	s.admins[a.ID] = *a
	return nil
}

// ---- products ----

func (s *Store) GetProductByID(_ context.Context, id uint64) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProductByExternalRef(_ context.Context, ref string) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.productByRef(ref); ok {
		return p, nil
	}
	return model.Product{}, repository.ErrNotFound
}

func (s *Store) productByRef(ref string) (model.Product, bool) {
	if ref == "" {
		return model.Product{}, false
	}
	for _, p := range s.products {
		if p.ExternalRef == ref {
			return p, true
		}
	}
	return model.Product{}, false
}

func (s *Store) GetOrCreateProduct(_ context.Context, p model.Product) (model.Product, model.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.productByRef(p.ExternalRef); ok {
		return existing, model.Found, nil
	}
	p.ID = s.nextID()
	p.CreatedAt, p.UpdatedAt = now(), now()
	s.products[p.ID] = p
	return p, model.Created, nil
}

// DeleteProduct removes a product without touching carts that hold it.
func (s *Store) DeleteProduct(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) productPtr(id uint64) *model.Product {
	p, ok := s.products[id]
	if !ok {
		return nil
	}
	return &p
}

// ---- carts ----

func (s *Store) GetCartByUser(_ context.Context, userID uint64) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return model.Cart{}, repository.ErrNotFound
	}
	out := *c
	out.Items = make([]model.CartItem, len(c.Items))
	for i, it := range c.Items {
		it.Product = s.productPtr(it.ProductID)
		out.Items[i] = it
	}
	return out, nil
}

func (s *Store) GetOrCreateCart(_ context.Context, userID uint64) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		c = &model.Cart{ID: s.nextID(), UserID: userID, CreatedAt: now(), UpdatedAt: now()}
		s.carts[userID] = c
	}
	return model.Cart{ID: c.ID, UserID: c.UserID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}, nil
}

func (s *Store) cartByID(cartID uint64) *model.Cart {
	for _, c := range s.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (s *Store) AddCartItem(_ context.Context, cartID, productID uint64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartByID(cartID)
	if c == nil {
		return repository.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			c.Items[i].UpdatedAt = now()
			return nil
		}
	}
	c.Items = append(c.Items, model.CartItem{
		ID: s.nextID(), CartID: cartID, ProductID: productID, Quantity: qty,
		CreatedAt: now(), UpdatedAt: now(),
	})
	return nil
}

func (s *Store) UpdateCartItemQuantity(_ context.Context, cartID, itemID uint64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cartByID(cartID); c != nil {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].Quantity = qty
				c.Items[i].UpdatedAt = now()
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (s *Store) DeleteCartItems(_ context.Context, cartID uint64, itemIDs ...uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartByID(cartID)
	if c == nil {
		return 0, nil
	}
	drop := make(map[uint64]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}
	kept := c.Items[:0]
	var n int64
	for _, it := range c.Items {
		if drop[it.ID] {
			n++
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return n, nil
}

func (s *Store) ClearCart(_ context.Context, cartID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cartByID(cartID); c != nil {
		c.Items = nil
	}
	return nil
}
