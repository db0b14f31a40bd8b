// Package middleware decorates session stores.
package middleware

import "github.com/aretw0/splitbill/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Wrap applies middlewares to store, the first one outermost.
func Wrap(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
