// Package retailer holds the per-retailer stock checkers and the registry the scheduler looks them up in.
package retailer

import (
	"context"
	"fmt"

	"github.com/yourneighborhoodchef/pokerestock/internal/client"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

// Checker is the capability every retailer implements.
// To add a retailer, implement this interface and Register it.
type Checker interface {
	Key() stock.RetailerKey
	// Name is the display name used in logs and alerts.
	Name() string
	// Color is the brand color as 0xRRGGBB.
	Color() int
	// Check returns Absent without network activity when p has no identifier for this retailer.
	// Transport and parse errors come back as a Failure outcome.
	Check(ctx context.Context, p stock.Product) stock.Outcome
}

// Registry keeps checkers in registration order.
type Registry struct {
	order    []stock.RetailerKey
	checkers map[stock.RetailerKey]Checker
}

// NewRegistry registers checkers in order. It panics on a duplicate key.
func NewRegistry(checkers ...Checker) *Registry {
	r := &Registry{checkers: make(map[stock.RetailerKey]Checker)}
	for _, c := range checkers {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds c. Registering the same key twice is an error.
func (r *Registry) Register(c Checker) error {
	if c == nil {
		return fmt.Errorf("retailer: nil checker")
	}
	if _, exists := r.checkers[c.Key()]; exists {
		return fmt.Errorf("retailer: %q already registered", c.Key())
	}
	r.checkers[c.Key()] = c
	r.order = append(r.order, c.Key())
	return nil
}

// Get returns the checker registered for key.
func (r *Registry) Get(key stock.RetailerKey) (Checker, bool) {
	c, ok := r.checkers[key]
	return c, ok
}

// All returns the checkers in registration order.
func (r *Registry) All() []Checker {
	out := make([]Checker, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.checkers[k])
	}
	return out
}

// Keys returns the registered keys in registration order.
func (r *Registry) Keys() []stock.RetailerKey {
	return append([]stock.RetailerKey(nil), r.order...)
}

// Names returns the display names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, c := range r.All() {
		out = append(out, c.Name())
	}
	return out
}

// Len returns the number of registered checkers.
func (r *Registry) Len() int { return len(r.order) }

// DefaultRegistry wires the five built-in retailers to doer.
func DefaultRegistry(doer client.Doer) *Registry {
	return NewRegistry(
		NewWalmart(doer),
		NewTarget(doer),
		NewBestBuy(doer),
		NewPokemonCenter(doer),
		NewGameStop(doer),
	)
}
