// Package kit provides the transport-agnostic endpoint abstraction shared by
// the collector's HTTP surface and the MCP tools: a request/response function
// type, middleware chaining, and context metadata keys.
package kit

import "context"

// Endpoint is the fundamental request/response building block.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left to right: the first argument is the
// outermost wrapper.
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}
