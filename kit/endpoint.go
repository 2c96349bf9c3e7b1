// Package kit holds the small transport-agnostic plumbing shared by the
// HTTP and MCP surfaces: the Endpoint abstraction, middleware chaining,
// context carriers, and MCP tool registration.
package kit

import "context"

// Endpoint is one operation exposed over a transport. Requests and
// responses are plain structs; transports handle the encoding.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares outermost-first: Chain(a, b, c)(e) runs
// a before b before c before e.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
