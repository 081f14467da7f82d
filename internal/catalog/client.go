package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrCatalogFetch wraps every failure to obtain the listing. An empty catalog
// is not an error.
var ErrCatalogFetch = errors.New("catalog fetch failed")

const (
	maxLimit        = 250
	imagesPerProd   = 5
	variantsPerProd = 25
	fetchTimeout    = 15 * time.Second
)

const productsQuery = `query Products($first: Int!, $images: Int!, $variants: Int!) {
  products(first: $first) {
    edges {
      node {
        id
        title
        handle
        description
        images(first: $images) { edges { node { url altText } } }
        variants(first: $variants) {
          edges {
            node {
              id
              title
              availableForSale
              price { amount currencyCode }
              selectedOptions { name value }
            }
          }
        }
      }
    }
  }
}`

// Querier is the commerce transport.
type Querier interface {
	Do(ctx context.Context, query string, variables map[string]any, out any) error
}

type Client struct {
	api    Querier
	sfg    singleflight.Group // collapses identical concurrent listings
	logger *zap.Logger
}

func NewClient(api Querier, l *zap.Logger) *Client {
	return &Client{api: api, logger: logger.OrNop(l)}
}

// FetchProducts returns up to limit products in API order. Products without
// any variant are skipped since nothing of them can be put in a cart.
func (c *Client) FetchProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrCatalogFetch, limit)
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	// The shared call outlives any single caller so one hang-up does not fail
	// everyone waiting on it; each caller still stops waiting on its own ctx.
	ch := c.sfg.DoChan(strconv.Itoa(limit), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		var resp productsResponse
		vars := map[string]any{"first": limit, "images": imagesPerProd, "variants": variantsPerProd}
		if err := c.api.Do(fetchCtx, productsQuery, vars, &resp); err != nil {
			return nil, err
		}
		return resp.toDomain(), nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCatalogFetch, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		logger.WithContext(ctx, c.logger).Warn("catalog fetch failed", zap.Int("limit", limit), zap.Error(res.Err))
		return nil, fmt.Errorf("%w: %w", ErrCatalogFetch, res.Err)
	}

	products := res.Val.([]domain.Product)
	if res.Shared {
		products = cloneProducts(products)
	}
	logger.WithContext(ctx, c.logger).Debug("catalog fetched", zap.Int("limit", limit), zap.Int("count", len(products)))
	return products, nil
}

// cloneProducts copies products deep enough that callers sharing one fetch
// cannot see each other's edits.
func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	for i, p := range in {
		p.Images = slices.Clone(p.Images)
		p.Variants = slices.Clone(p.Variants)
		for j := range p.Variants {
			p.Variants[j].SelectedOptions = slices.Clone(p.Variants[j].SelectedOptions)
		}
		out[i] = p
	}
	return out
}
