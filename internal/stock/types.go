// Package stock holds the data model shared by checkers, the state store and notifiers.
package stock

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetailerKey is the short identifier of a retailer, also used as the product config field name.
type RetailerKey string

const (
	Walmart       RetailerKey = "walmart"
	Target        RetailerKey = "target"
	BestBuy       RetailerKey = "bestbuy"
	PokemonCenter RetailerKey = "pokemoncenter"
	GameStop      RetailerKey = "gamestop"
)

// RetailerKeys lists the retailers a product may carry identifiers for, in check order.
func RetailerKeys() []RetailerKey {
	return []RetailerKey{Walmart, Target, BestBuy, PokemonCenter, GameStop}
}

// IsKnown reports whether k is one of RetailerKeys.
func IsKnown(k RetailerKey) bool {
	for _, known := range RetailerKeys() {
		if known == k {
			return true
		}
	}
	return false
}

// Product is a monitored item. It is loaded once at startup and never mutated.
type Product struct {
	Name string
	IDs  map[RetailerKey]string
}

// ID returns the trimmed identifier for retailer k and whether it is present.
func (p Product) ID(k RetailerKey) (string, bool) {
	id := strings.TrimSpace(p.IDs[k])
	return id, id != ""
}

// Retailers returns the keys p carries a non-empty identifier for, sorted.
func (p Product) Retailers() []RetailerKey {
	keys := make([]RetailerKey, 0, len(p.IDs))
	for k := range p.IDs {
		if _, ok := p.ID(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Reading is the normalized result of one stock check.
type Reading struct {
	InStock bool
	Price   decimal.NullDecimal
	URL     string
}

// PriceLabel renders the price as "$49.99", or fallback when there is none.
func (r Reading) PriceLabel(fallback string) string {
	if !r.Price.Valid {
		return fallback
	}
	return "$" + r.Price.Decimal.StringFixed(2)
}

// OutcomeKind tells a reading apart from the two non-reading results.
type OutcomeKind int

const (
	// OutcomeAbsent means the product has no identifier for the retailer; nothing was fetched.
	OutcomeAbsent OutcomeKind = iota
	OutcomeReading
	// OutcomeFailure means the check ran and failed; Err carries the reason.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReading:
		return "reading"
	case OutcomeFailure:
		return "failure"
	default:
		return "absent"
	}
}

// Outcome is what a checker returns. Failures are values, never panics.
type Outcome struct {
	Kind    OutcomeKind
	Reading Reading
	Err     error
}

// Absent builds the not-applicable outcome.
func Absent() Outcome { return Outcome{Kind: OutcomeAbsent} }

// Read wraps a reading.
func Read(r Reading) Outcome { return Outcome{Kind: OutcomeReading, Reading: r} }

// Fail wraps a failure reason.
func Fail(err error) Outcome { return Outcome{Kind: OutcomeFailure, Err: err} }

// Key identifies one (product, retailer) pair in the state store.
type Key struct {
	Product  string
	Retailer RetailerKey
}

func (k Key) String() string {
	return k.Product + "-" + string(k.Retailer)
}

// Event is a detected restock handed to notifiers.
type Event struct {
	ID           string
	Product      string
	Retailer     RetailerKey
	RetailerName string
	Color        int
	Price        decimal.NullDecimal
	URL          string
	DetectedAt   time.Time
}

// NewEvent builds a restock event for a reading.
func NewEvent(product string, retailer RetailerKey, retailerName string, color int, r Reading, at time.Time) Event {
	return Event{
		ID:           uuid.NewString(),
		Product:      product,
		Retailer:     retailer,
		RetailerName: retailerName,
		Color:        color,
		Price:        r.Price,
		URL:          r.URL,
		DetectedAt:   at,
	}
}

// PriceLabel renders the event price like Reading.PriceLabel.
func (e Event) PriceLabel(fallback string) string {
	return Reading{Price: e.Price}.PriceLabel(fallback)
}
