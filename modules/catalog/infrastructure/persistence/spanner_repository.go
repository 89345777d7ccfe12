package persistence

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/rai/storefront-payments/modules/catalog/domain"
)

// SpannerRepository reads products from the Products table.
type SpannerRepository struct {
	client *spanner.Client
}

func NewSpannerRepository(client *spanner.Client) *SpannerRepository {
	return &SpannerRepository{client: client}
}

func (r *SpannerRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	found := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	stmt := spanner.Statement{
		SQL: `SELECT ProductID, Name, Price FROM Products
		      WHERE ProductID IN UNNEST(@ids) AND Active = TRUE`,
		Params: map[string]interface{}{"ids": ids},
	}

	iter := r.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query products: %w", err)
		}

		var p domain.Product
		if err := row.Columns(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		found[p.ID] = p
	}
	return found, nil
}
