// Package middleware provides the HTTP middleware chain that wraps every
// gateway route: request IDs, access logging, and panic recovery.
package middleware

import "net/http"

// Middleware wraps a handler with additional logic.
type Middleware func(http.Handler) http.Handler

// Chain holds an ordered list of middleware.
type Chain struct {
	mws []Middleware
}

// NewChain creates a chain; the first middleware given runs outermost.
func NewChain(mws ...Middleware) *Chain {
	return &Chain{mws: append([]Middleware(nil), mws...)}
}

// Use appends middleware to the chain.
func (c *Chain) Use(mw Middleware) {
	c.mws = append(c.mws, mw)
}

// Then wraps h with the chain.
func (c *Chain) Then(h http.Handler) http.Handler {
	for i := len(c.mws) - 1; i >= 0; i-- {
		h = c.mws[i](h)
	}
	return h
}
