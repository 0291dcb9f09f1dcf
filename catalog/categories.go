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

// SubscribeCategories registers onChange for the filtered category list and
// returns the current items, fetching if needed. Fetch failures fall back to
// previously cached data the same way SubscribeProducts does.
func (s *Service) SubscribeCategories(ctx context.Context, filter CategoryFilter, onChange cache.SubscriberFunc) (*cache.Subscription, []Category, error) {
	key := filter.QueryKey()
	sub, _ := s.store.Subscribe(key, onChange)

	items, err := cache.EnsureFresh(ctx, s.fetches, key, s.categoryFetcher(filter))
	if err != nil {
		if cached, ok := s.cachedCategories(key); ok {
			return sub, cached, nil
		}
		return sub, nil, err
	}
	return sub, items, nil
}

// CreateCategory creates a category.
func (s *Service) CreateCategory(ctx context.Context, c Category) (Category, error) {
	return s.categories.Execute(ctx, mutation.Request[Category]{
		Operation:      mutation.OpCreate,
		Record:         c,
		Resource:       ResourceCategories,
		SuccessMessage: "Category created",
	}, func(ctx context.Context) (Category, error) {
		return s.requestCategory(ctx, http.MethodPost, "/categories", c)
	})
}

// UpdateCategory saves changes to an existing category. Product lists are
// invalidated too: they render category names.
func (s *Service) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	if c.ID == "" {
		return Category{}, errors.New("catalog: update requires a category id")
	}
	return s.categories.Execute(ctx, mutation.Request[Category]{
		Operation:           mutation.OpUpdate,
		Record:              c,
		Resource:            ResourceCategories,
		SuccessMessage:      "Category updated",
		InvalidateResources: []string{ResourceProducts},
	}, func(ctx context.Context) (Category, error) {
		return s.requestCategory(ctx, http.MethodPut, "/categories/"+c.ID, c)
	})
}

// DeleteCategory removes a category. Subscribed product lists are invalidated
// as well, since products filtered by the deleted category are now orphaned.
func (s *Service) DeleteCategory(ctx context.Context, c Category) error {
	if c.ID == "" {
		return errors.New("catalog: delete requires a category id")
	}
	_, err := s.categories.Execute(ctx, mutation.Request[Category]{
		Operation:           mutation.OpDelete,
		Record:              c,
		Resource:            ResourceCategories,
		SuccessMessage:      "Category deleted",
		InvalidateResources: []string{ResourceProducts},
	}, func(ctx context.Context) (Category, error) {
		if _, err := s.transport.Request(ctx, http.MethodDelete, "/categories/"+c.ID, nil, nil); err != nil {
			return Category{}, err
		}
		return c, nil
	})
	return err
}

func (s *Service) categoryFetcher(filter CategoryFilter) func(ctx context.Context) ([]Category, error) {
	return func(ctx context.Context) ([]Category, error) {
		data, err := s.transport.Request(ctx, http.MethodGet, "/categories", filter.values(), nil)
		if err != nil {
			return nil, err
		}
		var items []Category
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("catalog: decode categories: %w", err)
		}
		return items, nil
	}
}

func (s *Service) requestCategory(ctx context.Context, method, path string, body any) (Category, error) {
	data, err := s.transport.Request(ctx, method, path, nil, body)
	if err != nil {
		return Category{}, err
	}
	var c Category
	if err := json.Unmarshal(data, &c); err != nil {
		return Category{}, fmt.Errorf("catalog: decode category: %w", err)
	}
	return c, nil
}

func (s *Service) cachedCategories(key cache.QueryKey) ([]Category, bool) {
	for _, entry := range s.store.Read(cache.ExactKey(key)) {
		if entry.HasData {
			if items, ok := entry.Data.([]Category); ok {
				return items, true
			}
		}
	}
	return nil, false
}
