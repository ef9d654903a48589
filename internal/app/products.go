package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/HodayaSing/ai-pos/internal/cart"
	"github.com/HodayaSing/ai-pos/internal/catalog"
)

// ProductReader is the catalog call carts need.
type ProductReader interface {
	Get(ctx context.Context, id uint) (catalog.Product, error)
}

// ProductLookup resolves cart items from the product catalog.
type ProductLookup struct {
	Catalog ProductReader
}

// LookupItem implements cart.ProductLookup.
func (l ProductLookup) LookupItem(ctx context.Context, productID int64) (cart.Item, error) {
	if productID <= 0 {
		return cart.Item{}, cart.ErrProductNotFound
	}
	p, err := l.Catalog.Get(ctx, uint(productID))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return cart.Item{}, fmt.Errorf("%w: %d", cart.ErrProductNotFound, productID)
		}
		return cart.Item{}, err
	}
	return cart.Item{
		ID:        int64(p.ID),
		Name:      p.Name,
		UnitPrice: p.PriceFloat(),
		Category:  p.Category,
	}, nil
}
