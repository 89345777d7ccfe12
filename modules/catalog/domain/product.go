// Package domain defines the read-only view of catalog products used for pricing.
package domain

import (
	"context"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the authoritative catalog record for a sellable item.
// Price is kept as the stored decimal string in major units; parsing and
// validation happen in the pricing step.
type Product struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Price string `json:"price" yaml:"price"`
}

// Reader reads products by id. Missing ids are simply absent from the
// returned map; callers decide whether that is an error.
type Reader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}
