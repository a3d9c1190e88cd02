package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound means no catalog source knows the product.
var ErrNotFound = errors.New("product not found in catalog")

// Lookup resolves a product id to its authoritative price.
type Lookup interface {
	PriceOf(ctx context.Context, productID string) (float64, error)
}

// ProductFetcher is the live CMS side of the lookup; *SanityClient satisfies
// it.
type ProductFetcher interface {
	FetchProductByID(ctx context.Context, productID string) (*Product, error)
}

type mirrorLookup struct {
	repo    Repository
	fetcher ProductFetcher
}

// NewLookup answers price queries from the local mirror first and falls back
// to the live CMS when the mirror has no row. fetcher may be nil to run
// mirror-only.
func NewLookup(repo Repository, fetcher ProductFetcher) Lookup {
	return &mirrorLookup{repo: repo, fetcher: fetcher}
}

func (l *mirrorLookup) PriceOf(ctx context.Context, productID string) (float64, error) {
	id := NormalizeID(productID)

	p, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("mirror lookup: %w", err)
	}
	if p != nil {
		return p.Price, nil
	}

	if l.fetcher == nil {
		return 0, ErrNotFound
	}

	p, err = l.fetcher.FetchProductByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("cms lookup: %w", err)
	}
	if p == nil {
		return 0, ErrNotFound
	}

	return p.Price, nil
}
