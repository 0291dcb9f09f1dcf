package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Florvin-04/product-catalog-cache/cache"
	"github.com/Florvin-04/product-catalog-cache/mutation"
)

// SubscribeProducts registers onChange for the filtered product list and
// returns the current items, fetching them if the entry is empty or stale. If
// the fetch fails but the entry still holds earlier data, that data is
// returned and the error only surfaces through the entry status
// (stale-while-revalidate).
func (s *Service) SubscribeProducts(ctx context.Context, filter ProductFilter, onChange cache.SubscriberFunc) (*cache.Subscription, []Product, error) {
	key := filter.QueryKey()
	sub, _ := s.store.Subscribe(key, onChange)

	items, err := cache.EnsureFresh(ctx, s.fetches, key, s.productFetcher(filter))
	if err != nil {
		if cached, ok := s.cachedProducts(key); ok {
			return sub, cached, nil
		}
		return sub, nil, err
	}
	return sub, items, nil
}

// RefreshProducts forces a refetch of the filtered product list, bypassing
// fresh cached data. Backs the explicit refresh action in the admin UI.
func (s *Service) RefreshProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return cache.EnsureFresh(cache.WithForceRefresh(ctx), s.fetches, filter.QueryKey(), s.productFetcher(filter))
}

// CreateProduct creates a product. The new record appears at the head of
// every subscribed product list immediately; the server's record, id
// included, replaces the optimistic placeholder on success.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	return s.products.Execute(ctx, mutation.Request[Product]{
		Operation:      mutation.OpCreate,
		Record:         p,
		Resource:       ResourceProducts,
		SuccessMessage: "Product created",
	}, func(ctx context.Context) (Product, error) {
		return s.requestProduct(ctx, http.MethodPost, "/products", p)
	})
}

// UpdateProduct saves changes to an existing product.
func (s *Service) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		return Product{}, errors.New("catalog: update requires a product id")
	}
	return s.products.Execute(ctx, mutation.Request[Product]{
		Operation:      mutation.OpUpdate,
		Record:         p,
		Resource:       ResourceProducts,
		SuccessMessage: "Product updated",
	}, func(ctx context.Context) (Product, error) {
		return s.requestProduct(ctx, http.MethodPut, "/products/"+p.ID, p)
	})
}

// DeleteProduct removes a product. Every subscribed product list drops the
// record immediately and restores it in place if the server refuses.
func (s *Service) DeleteProduct(ctx context.Context, p Product) error {
	if p.ID == "" {
		return errors.New("catalog: delete requires a product id")
	}
	_, err := s.products.Execute(ctx, mutation.Request[Product]{
		Operation:      mutation.OpDelete,
		Record:         p,
		Resource:       ResourceProducts,
		SuccessMessage: "Product deleted",
	}, func(ctx context.Context) (Product, error) {
		if _, err := s.transport.Request(ctx, http.MethodDelete, "/products/"+p.ID, nil, nil); err != nil {
			return Product{}, err
		}
		return p, nil
	})
	return err
}

func (s *Service) productFetcher(filter ProductFilter) func(ctx context.Context) ([]Product, error) {
	return func(ctx context.Context) ([]Product, error) {
		data, err := s.transport.Request(ctx, http.MethodGet, "/products", filter.values(), nil)
		if err != nil {
			return nil, err
		}
		var items []Product
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("catalog: decode products: %w", err)
		}
		return items, nil
	}
}

func (s *Service) requestProduct(ctx context.Context, method, path string, body any) (Product, error) {
	data, err := s.transport.Request(ctx, method, path, nil, body)
	if err != nil {
		return Product{}, err
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return Product{}, fmt.Errorf("catalog: decode product: %w", err)
	}
	return p, nil
}

func (s *Service) cachedProducts(key cache.QueryKey) ([]Product, bool) {
	for _, entry := range s.store.Read(cache.ExactKey(key)) {
		if entry.HasData {
			if items, ok := entry.Data.([]Product); ok {
				return items, true
			}
		}
	}
	return nil, false
}
