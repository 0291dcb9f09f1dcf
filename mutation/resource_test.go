package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type Product struct{ ID string }

func (p Product) RecordID() string { return p.ID }

type Category struct{ ID string }

func (c Category) RecordID() string { return c.ID }

type OrderLine struct{ ID string }

func (o OrderLine) RecordID() string { return o.ID }

func TestResourceName(t *testing.T) {
	assert.Equal(t, "products", ResourceName[Product]())
	assert.Equal(t, "categories", ResourceName[Category]())
	assert.Equal(t, "order_lines", ResourceName[OrderLine]())
	assert.Equal(t, "products", ResourceName[*Product]())
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"product", "products"},
		{"category", "categories"},
		{"day", "days"},
		{"status", "statuses"},
		{"box", "boxes"},
		{"batch", "batches"},
		{"flash", "flashes"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pluralize(tt.in), "pluralize(%q)", tt.in)
	}
}

func TestToSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Product", "product"},
		{"OrderLine", "order_line"},
		{"HTTPClient", "http_client"},
		{"userID", "user_id"},
		{"already_snake", "already_snake"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toSnake(tt.in), "toSnake(%q)", tt.in)
	}
}
