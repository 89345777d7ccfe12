// Package persistence implements catalog readers.
package persistence

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rai/storefront-payments/modules/catalog/domain"
)

// InMemoryRepository implements domain.Reader using in-memory storage.
type InMemoryRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewInMemoryRepository(products ...domain.Product) *InMemoryRepository {
	r := &InMemoryRepository{products: make(map[string]domain.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

type seedFile struct {
	Products []domain.Product `yaml:"products"`
}

// LoadSeedFile builds a repository from a YAML file of the form
//
//	products:
//	  - id: "7"
//	    name: Silver Anklet
//	    price: "500.00"
func LoadSeedFile(path string) (*InMemoryRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog seed: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing catalog seed: %w", err)
	}
	return NewInMemoryRepository(seed.Products...), nil
}

// Put adds or replaces a product.
func (r *InMemoryRepository) Put(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *InMemoryRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}
