package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"MiniShop/internal/apperr"
)

type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Patch is a partial update; nil fields keep their stored value.
type Patch struct {
	Name  *string
	Price *decimal.Decimal
}

type Store interface {
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, name string, price decimal.Decimal) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, id int64, p Patch) (Product, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// DemoProducts is what Seed inserts into an empty catalog.
var DemoProducts = []Product{
	{Name: "Herbata zielona 100g", Price: decimal.RequireFromString("19.90")},
}

// Seed inserts products only when the catalog is empty.
func Seed(ctx context.Context, s Store, products []Product) (int, error) {
	existing, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, p := range products {
		if _, err := s.Create(ctx, p.Name, p.Price); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	return name, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.Validation("price must be >= 0, got %s", price)
	}
	return nil
}

func validateID(id int64) error {
	if id < 1 {
		return apperr.Validation("invalid product id %d", id)
	}
	return nil
}

// normalize validates the fields a patch sets and returns it with the name
// trimmed.
func (p Patch) normalize() (Patch, error) {
	if p.Name != nil {
		name, err := normalizeName(*p.Name)
		if err != nil {
			return Patch{}, err
		}
		p.Name = &name
	}
	if p.Price != nil {
		if err := validatePrice(*p.Price); err != nil {
			return Patch{}, err
		}
	}
	return p, nil
}
