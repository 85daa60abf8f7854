// Package movements provides the valuation use cases over the stored movement ledger.
package movements

import (
	"context"

	"stockval/internal/core/id"
	"stockval/internal/domain/valuation"
)

// Repository is the movement-retrieval boundary. Movements are append-only and
// returned unvalidated; numeric checks belong to the valuation engine.
type Repository interface {
	// ListByProduct returns every movement of one product.
	ListByProduct(ctx context.Context, productID id.ID) ([]valuation.RawMovement, error)

	// ListByClient returns every movement billed to one client.
	ListByClient(ctx context.Context, clientID id.ID) ([]valuation.RawMovement, error)
}

// ScopeKind says whether a valuation covers a product or a client.
type ScopeKind string

const (
	ScopeProduct ScopeKind = "product"
	ScopeClient  ScopeKind = "client"
)

// Scope is the single product or single client one valuation covers.
// Costing across mixed products is meaningless, so every run is scoped.
type Scope struct {
	Kind ScopeKind
	ID   id.ID
}

// ProductScope is a shorthand for a product scope.
func ProductScope(productID id.ID) Scope { return Scope{Kind: ScopeProduct, ID: productID} }

// ClientScope is a shorthand for a client scope.
func ClientScope(clientID id.ID) Scope { return Scope{Kind: ScopeClient, ID: clientID} }

// String renders "product:<uuid>"; it is also the cache and NOTIFY payload format.
func (s Scope) String() string {
	return string(s.Kind) + ":" + s.ID.String()
}

// Cache stores valuation results. Cached results are shared and must not be modified.
type Cache interface {
	Get(scope Scope, method valuation.Method) (*valuation.Result, bool)
	Set(scope Scope, method valuation.Method, res *valuation.Result)
}

// Recorder receives valuation metrics.
type Recorder interface {
	ObserveValuation(method valuation.Method, scope ScopeKind, rows int, seconds float64, err error)
}
