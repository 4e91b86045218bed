package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"MiniShop/internal/apperr"
)

// MemStore is an in-process Store for tests and local development. It
// follows the SQLStore contract but cannot join a checkout transaction.
type MemStore struct {
	mu     sync.RWMutex
	m      map[int64]Product
	nextID int64
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[int64]Product{}, nextID: 1}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemStore) Create(ctx context.Context, name string, price decimal.Decimal) (Product, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Product{}, err
	}
	if err := validatePrice(price); err != nil {
		return Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := Product{ID: s.nextID, Name: name, Price: price}
	s.m[p.ID] = p
	s.nextID++
	return p, nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Product, error) {
	if err := validateID(id); err != nil {
		return Product{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	if !ok {
		return Product{}, apperr.NotFound("product", id)
	}
	return p, nil
}

func (s *MemStore) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	if err := validateID(id); err != nil {
		return Product{}, err
	}
	patch, err := patch.normalize()
	if err != nil {
		return Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.m[id]
	if !ok {
		return Product{}, apperr.NotFound("product", id)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	s.m[id] = p
	return p, nil
}

func (s *MemStore) Delete(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return apperr.NotFound("product", id)
	}
	delete(s.m, id)
	return nil
}
