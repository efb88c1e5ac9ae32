package client

import (
	"context"
	"iter"
	"net/http"
	"slices"
	"time"
)

// Interceptor observes or rewrites exchanges. Its identity is the name it
// is registered under in a Chain.
type Interceptor interface {
	// Before runs before the transport is contacted. It may edit the
	// request. A returned error aborts the send.
	Before(ctx context.Context, rb *RequestBuilder) error
	// After runs once a response head or a transport failure is available.
	// It may edit ex.Header or replace ex.Err. A returned error fails the
	// send and skips the remaining After hooks.
	After(ctx context.Context, ex *Exchange) error
}

// Exchange is what After hooks see of a completed round trip.
type Exchange struct {
	// Request is the request as sent, after every Before hook ran.
	Request *Request
	// StatusCode is 0 when the transport failed.
	StatusCode int
	// Header holds the response headers. Hooks may edit it.
	Header http.Header
	// Err is the transport failure, if any. Hooks may replace it.
	Err error
	// Attempt is the 1-based attempt number when retries are enabled.
	Attempt int
	// Started is when the Before hooks began; Elapsed runs until the
	// response head or failure arrived.
	Started time.Time
	Elapsed time.Duration
}

// InterceptorFuncs adapts plain functions to Interceptor. Nil funcs are no-ops.
type InterceptorFuncs struct {
	BeforeFunc func(ctx context.Context, rb *RequestBuilder) error
	AfterFunc  func(ctx context.Context, ex *Exchange) error
}

func (f InterceptorFuncs) Before(ctx context.Context, rb *RequestBuilder) error {
	if f.BeforeFunc == nil {
		return nil
	}
	return f.BeforeFunc(ctx, rb)
}

func (f InterceptorFuncs) After(ctx context.Context, ex *Exchange) error {
	if f.AfterFunc == nil {
		return nil
	}
	return f.AfterFunc(ctx, ex)
}

// Chain is an insertion-ordered set of named interceptors.
// The zero value is empty and ready to use.
type Chain struct {
	names   []string
	entries map[string]Interceptor
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{entries: make(map[string]Interceptor)}
}

// AddOrReplace registers ic under name. A replaced entry keeps its
// position; a new one is appended. A nil ic removes name.
func (c *Chain) AddOrReplace(name string, ic Interceptor) {
	if ic == nil {
		c.Remove(name)
		return
	}
	if c.entries == nil {
		c.entries = make(map[string]Interceptor)
	}
	if _, ok := c.entries[name]; !ok {
		c.names = append(c.names, name)
	}
	c.entries[name] = ic
}

// Remove deletes name and reports whether it was present.
func (c *Chain) Remove(name string) bool {
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
	return true
}

// Get returns the interceptor registered under name.
func (c *Chain) Get(name string) (Interceptor, bool) {
	if c == nil {
		return nil, false
	}
	ic, ok := c.entries[name]
	return ic, ok
}

// Names returns the registered names in insertion order.
func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.names)
}

// Len returns the number of interceptors.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// All iterates the chain in insertion order.
func (c *Chain) All() iter.Seq2[string, Interceptor] {
	return func(yield func(string, Interceptor) bool) {
		if c == nil {
			return
		}
		for _, name := range c.names {
			if !yield(name, c.entries[name]) {
				return
			}
		}
	}
}

// Clone returns an independent copy. Interceptor values are shared.
func (c *Chain) Clone() *Chain {
	out := NewChain()
	if c == nil {
		return out
	}
	out.names = slices.Clone(c.names)
	for k, v := range c.entries {
		out.entries[k] = v
	}
	return out
}
