package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"MiniShop/internal/apperr"
	"MiniShop/internal/storage"
)

type SQLStore struct {
	db storage.Querier
}

// NewSQLStore works over the pool or over an open transaction.
func NewSQLStore(db storage.Querier) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	pinger, ok := s.db.(interface{ PingContext(context.Context) error })
	if !ok {
		return nil
	}
	return storage.WithTimeout(ctx, storage.PingTimeout, pinger.PingContext)
}

func (s *SQLStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, price
			FROM products
			ORDER BY name ASC, id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, storage.Classify("list products", err)
	}
	return out, nil
}

func (s *SQLStore) Create(ctx context.Context, name string, price decimal.Decimal) (Product, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Product{}, err
	}
	if err := validatePrice(price); err != nil {
		return Product{}, err
	}

	var p Product
	err = storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO products (name, price)
			VALUES ($1, $2)
			RETURNING id, name, price
		`, name, price).Scan(&p.ID, &p.Name, &p.Price)
	})
	if err != nil {
		return Product{}, storage.Classify("create product", err)
	}
	return p, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Product, error) {
	if err := validateID(id); err != nil {
		return Product{}, err
	}

	var p Product
	err := storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, name, price
			FROM products
			WHERE id = $1
		`, id).Scan(&p.ID, &p.Name, &p.Price)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, apperr.NotFound("product", id)
	}
	if err != nil {
		return Product{}, storage.Classify("get product", err)
	}
	return p, nil
}

// Update applies the patch in one statement so concurrent updates never
// interleave between read and write.
func (s *SQLStore) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	if err := validateID(id); err != nil {
		return Product{}, err
	}
	patch, err := patch.normalize()
	if err != nil {
		return Product{}, err
	}

	var (
		name  sql.NullString
		price any
	)
	if patch.Name != nil {
		name = sql.NullString{String: *patch.Name, Valid: true}
	}
	if patch.Price != nil {
		price = *patch.Price
	}

	var p Product
	err = storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			UPDATE products
			SET name = COALESCE($2, name),
			    price = COALESCE($3, price)
			WHERE id = $1
			RETURNING id, name, price
		`, id, name, price).Scan(&p.ID, &p.Name, &p.Price)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, apperr.NotFound("product", id)
	}
	if err != nil {
		return Product{}, storage.Classify("update product", err)
	}
	return p, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}

	var affected int64
	err := storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return storage.Classify("delete product", err)
	}
	if affected == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}
