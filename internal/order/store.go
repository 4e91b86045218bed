package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"MiniShop/internal/money"
)

// Line is one sold product. Name and Price are copied from the catalog at
// checkout and never change afterwards, even if the product is edited or
// deleted.
type Line struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Lines     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

type LineInput struct {
	ProductID int64
	Name      string
	Qty       int
	Price     decimal.Decimal
}

type Store interface {
	List(ctx context.Context) ([]Order, error)
	Ping(ctx context.Context) error
}

// withTotals fills the derived amounts with the same per-line rounding the
// cart uses.
func (o *Order) withTotals() {
	subtotals := make([]decimal.Decimal, len(o.Lines))
	for i := range o.Lines {
		o.Lines[i].Subtotal = money.Subtotal(o.Lines[i].Price, o.Lines[i].Qty)
		subtotals[i] = o.Lines[i].Subtotal
	}
	o.Total = money.Sum(subtotals...)
}
