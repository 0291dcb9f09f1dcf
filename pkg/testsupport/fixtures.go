// Package testsupport provides fakes and fixtures for exercising the cache
// engine in tests: a scriptable transport, a recording notifier, and canned
// catalog data.
package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Florvin-04/product-catalog-cache/catalog"
	"github.com/Florvin-04/product-catalog-cache/internal/resthttp"
)

// RecordedCall captures one request made through the FakeTransport.
type RecordedCall struct {
	Method string
	Path   string
	Params url.Values
	Body   any
}

// HandlerFunc produces the response for a scripted route.
type HandlerFunc func(ctx context.Context, params url.Values, body any) ([]byte, error)

// FakeTransport is a scriptable in-memory Transport. Routes are keyed by
// "METHOD path"; unscripted routes fail with a 404-style rejection. Handlers
// may block on channels supplied by the test to force a particular
// interleaving of fetches and mutations.
type FakeTransport struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []RecordedCall
}

// NewFakeTransport creates an empty scriptable transport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{handlers: make(map[string]HandlerFunc)}
}

// Handle scripts a route with an arbitrary handler.
func (f *FakeTransport) Handle(method, path string, h HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

// RespondJSON scripts a route to return the JSON encoding of v.
func (f *FakeTransport) RespondJSON(method, path string, v any) {
	f.Handle(method, path, func(context.Context, url.Values, any) ([]byte, error) {
		return marshal(v)
	})
}

// FailWith scripts a route to reject with a server error carrying message.
func (f *FakeTransport) FailWith(method, path string, status int, message string) {
	f.Handle(method, path, func(context.Context, url.Values, any) ([]byte, error) {
		return nil, &resthttp.APIError{StatusCode: status, Message: message}
	})
}

// Request implements catalog.Transport.
func (f *FakeTransport) Request(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, RecordedCall{Method: method, Path: path, Params: params, Body: body})
	h := f.handlers[method+" "+path]
	f.mu.Unlock()

	if h == nil {
		return nil, &resthttp.APIError{StatusCode: 404, Message: fmt.Sprintf("no route scripted for %s %s", method, path)}
	}
	return h(ctx, params, body)
}

// Calls returns a copy of all recorded requests in order.
func (f *FakeTransport) Calls() []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedCall(nil), f.calls...)
}

// CallCount returns how many requests hit the given route.
func (f *FakeTransport) CallCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// RecordingNotifier captures mutation signals for assertions.
type RecordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

// Success implements mutation.Notifier.
func (n *RecordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

// Failure implements mutation.Notifier.
func (n *RecordingNotifier) Failure(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
}

// Successes returns the recorded success messages in order.
func (n *RecordingNotifier) Successes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.successes...)
}

// Failures returns the recorded failure messages in order.
func (n *RecordingNotifier) Failures() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failures...)
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("testsupport: marshal response: %w", err)
	}
	return data, nil
}

// Fixture data.

// Products returns n distinct products with ids "p1"..."pn".
func Products(n int) []catalog.Product {
	items := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, catalog.Product{
			ID:         fmt.Sprintf("p%d", i),
			Name:       fmt.Sprintf("Product %d", i),
			Price:      decimal.NewFromInt(int64(i)).Mul(decimal.NewFromFloat(9.99)),
			CategoryID: fmt.Sprintf("c%d", (i%3)+1),
		})
	}
	return items
}

// Categories returns n distinct categories with ids "c1"..."cn".
func Categories(n int) []catalog.Category {
	items := make([]catalog.Category, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, catalog.Category{
			ID:   fmt.Sprintf("c%d", i),
			Name: fmt.Sprintf("Category %d", i),
		})
	}
	return items
}
