package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HodayaSing/ai-pos/internal/lock"
	"github.com/HodayaSing/ai-pos/internal/obs"
	"github.com/HodayaSing/ai-pos/internal/pricing"
)

// ErrProductNotFound is returned by ProductLookup for unknown products.
var ErrProductNotFound = errors.New("product not found")

// ProductLookup resolves the current name, price and category of a product.
type ProductLookup interface {
	LookupItem(ctx context.Context, productID int64) (Item, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Repo     Repository
	Locker   lock.Locker
	Products ProductLookup
	LockTTL  time.Duration
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create stores a new empty cart.
func (s *Service) Create(ctx context.Context) (*Cart, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	c := New(uuid.NewString())
	c.UpdatedAt = s.now()
	if err := s.Repo.Save(ctx, c); err != nil {
		return nil, err
	}
	obs.ObserveCartMutation("create")
	return c, nil
}

// Get loads a cart.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// AddProduct adds one unit of the product, resolving its details first.
func (s *Service) AddProduct(ctx context.Context, id string, productID int64) (*Cart, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("product id must be positive: %w", ErrInvalidInput)
	}
	if s.Products == nil {
		return nil, errors.New("cart product lookup not configured")
	}
	item, err := s.Products.LookupItem(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "add", func(c *Cart) error {
		c.Add(item)
		return nil
	})
}

// UpdateQuantity sets a line quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, id string, productID int64, qty int) (*Cart, error) {
	return s.mutate(ctx, id, "update_quantity", func(c *Cart) error {
		c.UpdateQuantity(productID, qty)
		return nil
	})
}

// RemoveItem drops a line. Unknown product ids are ignored.
func (s *Service) RemoveItem(ctx context.Context, id string, productID int64) (*Cart, error) {
	return s.mutate(ctx, id, "remove", func(c *Cart) error {
		c.Remove(productID)
		return nil
	})
}

// SetTip replaces the tip.
func (s *Service) SetTip(ctx context.Context, id string, tip pricing.Tip) (*Cart, error) {
	return s.mutate(ctx, id, "tip", func(c *Cart) error {
		return c.SetTip(tip)
	})
}

// SetDiscounts replaces both discounts and the coupon code at once.
func (s *Service) SetDiscounts(ctx context.Context, id string, manual, coupon float64, couponCode string) (*Cart, error) {
	return s.mutate(ctx, id, "discounts", func(c *Cart) error {
		if err := c.SetManualDiscount(manual); err != nil {
			return err
		}
		return c.SetCoupon(couponCode, coupon)
	})
}

// SetNote replaces the kitchen note.
func (s *Service) SetNote(ctx context.Context, id, note string) (*Cart, error) {
	return s.mutate(ctx, id, "note", func(c *Cart) error {
		c.SetNote(note)
		return nil
	})
}

// Clear resets the cart to empty but keeps it.
func (s *Service) Clear(ctx context.Context, id string) (*Cart, error) {
	return s.mutate(ctx, id, "clear", func(c *Cart) error {
		c.Clear()
		return nil
	})
}

// Close removes a finished ticket and returns its final state, so the
// caller can still print the bill.
func (s *Service) Close(ctx context.Context, id string) (*Cart, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.Locker == nil {
		return nil, errors.New("cart locker not configured")
	}
	var out *Cart
	err := s.Locker.WithLock(ctx, "lock:cart:"+id, s.lockTTL(), func(ctx context.Context) error {
		c, err := s.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.Repo.Delete(ctx, id); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	obs.ObserveCartMutation("close")
	return out, nil
}

// mutate applies fn to the stored cart under the cart lock and saves the
// result. Nothing is saved when fn fails.
func (s *Service) mutate(ctx context.Context, id, op string, fn func(*Cart) error) (*Cart, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	locker := s.Locker
	if locker == nil {
		return nil, errors.New("cart locker not configured")
	}
	var out *Cart
	err := locker.WithLock(ctx, "lock:cart:"+id, s.lockTTL(), func(ctx context.Context) error {
		c, err := s.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		if err := s.Repo.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	obs.ObserveCartMutation(op)
	return out, nil
}
