// Package cart holds the single, process-wide working cart.
//
// The cart is not scoped to a session: every caller shares one
// product_id -> qty map. Carts keyed by session would key this map by a
// session id and keep the operation contracts below unchanged. The cart is
// volatile and starts empty with the process.
package cart

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"MiniShop/internal/apperr"
	"MiniShop/internal/catalog"
	"MiniShop/internal/money"
)

// MaxQty is the largest quantity a line can hold, matching the 32-bit
// qty column orders are stored in.
const MaxQty = math.MaxInt32

// Lookup resolves a product id against the catalog. catalog.Store
// satisfies it.
type Lookup interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Snapshot struct {
	Lines []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type entry struct {
	productID int64
	qty       int
}

type Cart struct {
	catalog Lookup

	mu    sync.Mutex
	qty   map[int64]int
	order []int64
}

func New(catalog Lookup) *Cart {
	return &Cart{catalog: catalog, qty: map[int64]int{}}
}

// Add introduces a product or adds qty to an existing line.
func (c *Cart) Add(ctx context.Context, productID int64, qty int) error {
	if err := validate(productID, qty); err != nil {
		return err
	}
	if _, err := c.catalog.Get(ctx, productID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.qty[productID]
	if current > MaxQty-qty {
		return apperr.Validation("qty for product %d would exceed %d", productID, MaxQty)
	}
	if !ok {
		c.order = append(c.order, productID)
	}
	c.qty[productID] = current + qty
	return nil
}

// SetQuantity replaces the quantity of a line already in the cart.
func (c *Cart) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if err := validate(productID, qty); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.qty[productID]; !ok {
		return apperr.NotFound("cart line", productID)
	}
	c.qty[productID] = qty
	return nil
}

func (c *Cart) Remove(ctx context.Context, productID int64) error {
	if productID < 1 {
		return apperr.Validation("invalid product id %d", productID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.qty[productID]; !ok {
		return apperr.NotFound("cart line", productID)
	}
	delete(c.qty, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Read prices every entry against the live catalog. Entries whose product
// is gone are left out of the result but stay in the cart.
func (c *Cart) Read(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	entries := c.entriesLocked()
	c.mu.Unlock()

	return price(ctx, c.catalog, entries)
}

// Locked is the cart as seen from inside Exclusive.
type Locked struct {
	c     *Cart
	clear bool
}

// Read snapshots the cart, resolving products through lookup (typically a
// catalog store bound to the caller's transaction).
func (l *Locked) Read(ctx context.Context, lookup Lookup) (Snapshot, error) {
	return price(ctx, lookup, l.c.entriesLocked())
}

// Clear empties the whole cart once the surrounding Exclusive call
// succeeds.
func (l *Locked) Clear() { l.clear = true }

// Exclusive runs fn with the cart locked against every other cart
// operation. A Clear requested by fn is applied only if fn returns nil, so
// a failed fn leaves the cart exactly as it was.
func (c *Cart) Exclusive(fn func(l *Locked) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := &Locked{c: c}
	if err := fn(l); err != nil {
		return err
	}
	if l.clear {
		c.qty = map[int64]int{}
		c.order = nil
	}
	return nil
}

func (c *Cart) entriesLocked() []entry {
	out := make([]entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, entry{productID: id, qty: c.qty[id]})
	}
	return out
}

func price(ctx context.Context, lookup Lookup, entries []entry) (Snapshot, error) {
	lines := make([]Line, 0, len(entries))
	subtotals := make([]decimal.Decimal, 0, len(entries))

	for _, e := range entries {
		p, err := lookup.Get(ctx, e.productID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return Snapshot{}, apperr.Storage("price cart line", err)
		}

		sub := money.Subtotal(p.Price, e.qty)
		lines = append(lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Qty:       e.qty,
			Subtotal:  sub,
		})
		subtotals = append(subtotals, sub)
	}

	return Snapshot{Lines: lines, Total: money.Sum(subtotals...)}, nil
}

func validate(productID int64, qty int) error {
	if productID < 1 {
		return apperr.Validation("invalid product id %d", productID)
	}
	if qty < 1 || qty > MaxQty {
		return apperr.Validation("qty must be between 1 and %d, got %d", MaxQty, qty)
	}
	return nil
}
