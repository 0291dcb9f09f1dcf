package catalog

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Florvin-04/product-catalog-cache/cache"
)

// Resource names under which catalog queries are cached.
const (
	ResourceProducts   = "products"
	ResourceCategories = "categories"
)

// Transport is the async call surface the catalog needs from the API layer.
// It maps HTTP-style semantics onto CRUD but the engine treats it purely as a
// function returning data or a structured error.
type Transport interface {
	Request(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error)
}

// Product is a catalog product record.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"category_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
}

// RecordID returns the product identity used by list transforms.
func (p Product) RecordID() string { return p.ID }

// WithID returns a copy of the product with the given id. The mutation
// executor uses it to synthesize placeholder identities for optimistic
// creates.
func (p Product) WithID(id string) Product {
	p.ID = id
	return p
}

// Category is a catalog category record.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RecordID returns the category identity used by list transforms.
func (c Category) RecordID() string { return c.ID }

// WithID returns a copy of the category with the given id.
func (c Category) WithID(id string) Category {
	c.ID = id
	return c
}

// ProductFilter shapes a product list query. The zero value lists everything.
type ProductFilter struct {
	Search     string
	CategoryID string
	Page       int
	PerPage    int
}

// QueryKey returns the cache key for this filter. Zero-valued fields are
// omitted so equivalent filters map to the same entry.
func (f ProductFilter) QueryKey() cache.QueryKey {
	params := make(map[string]any)
	if f.Search != "" {
		params["search"] = f.Search
	}
	if f.CategoryID != "" {
		params["category_id"] = f.CategoryID
	}
	if f.Page > 0 {
		params["page"] = f.Page
	}
	if f.PerPage > 0 {
		params["per_page"] = f.PerPage
	}
	return cache.NewKey(ResourceProducts, params)
}

func (f ProductFilter) values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.CategoryID != "" {
		v.Set("category_id", f.CategoryID)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	}
	return v
}

// CategoryFilter shapes a category list query.
type CategoryFilter struct {
	Search string
}

// QueryKey returns the cache key for this filter.
func (f CategoryFilter) QueryKey() cache.QueryKey {
	params := make(map[string]any)
	if f.Search != "" {
		params["search"] = f.Search
	}
	return cache.NewKey(ResourceCategories, params)
}

func (f CategoryFilter) values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}
