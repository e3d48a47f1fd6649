// Package state keeps the last known stock state per (product, retailer) and detects restocks.
//
// The store is memory-only. A restart resets every key to unknown, which Evaluate treats as
// out of stock; the first in-stock reading after a restart therefore alerts.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

// Decision is the result of one Evaluate call.
type Decision struct {
	// Emit is true only on a false/absent -> true transition.
	Emit     bool
	Previous bool
	Current  bool
}

// Entry is one row of a snapshot.
type Entry struct {
	Product   string            `json:"product"`
	Retailer  stock.RetailerKey `json:"retailer"`
	InStock   bool              `json:"in_stock"`
	Price     string            `json:"price,omitempty"`
	URL       string            `json:"url,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type slot struct {
	mu        sync.Mutex
	inStock   bool
	price     string
	url       string
	updatedAt time.Time
}

// Store is the per-key state table. The zero value is not usable; call New.
type Store struct {
	mu    sync.RWMutex
	slots map[stock.Key]*slot
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{slots: make(map[stock.Key]*slot), now: time.Now}
}

func (s *Store) slotFor(key stock.Key) *slot {
	s.mu.RLock()
	sl, ok := s.slots[key]
	s.mu.RUnlock()
	if ok {
		return sl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.slots[key]; !ok {
		sl = &slot{}
		s.slots[key] = sl
	}
	return sl
}

// Evaluate atomically reads the previous state for key, decides whether r is a restock and
// stores r.InStock. Concurrent calls for the same key are serialized; other keys never wait.
func (s *Store) Evaluate(key stock.Key, r stock.Reading) Decision {
	sl := s.slotFor(key)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	prev := sl.inStock
	sl.inStock = r.InStock
	sl.url = r.URL
	sl.price = ""
	if r.Price.Valid {
		sl.price = r.Price.Decimal.String()
	}
	sl.updatedAt = s.now()

	return Decision{Emit: r.InStock && !prev, Previous: prev, Current: r.InStock}
}

// Get returns the stored state for key and whether the key has been observed.
func (s *Store) Get(key stock.Key) (bool, bool) {
	s.mu.RLock()
	sl, ok := s.slots[key]
	s.mu.RUnlock()
	if !ok {
		return false, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.inStock, true
}

// Snapshot copies the table, sorted by product then retailer. It never mutates state.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	keys := make([]stock.Key, 0, len(s.slots))
	slots := make([]*slot, 0, len(s.slots))
	for k, sl := range s.slots {
		keys = append(keys, k)
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	out := make([]Entry, 0, len(keys))
	for i, k := range keys {
		sl := slots[i]
		sl.mu.Lock()
		out = append(out, Entry{
			Product:   k.Product,
			Retailer:  k.Retailer,
			InStock:   sl.inStock,
			Price:     sl.price,
			URL:       sl.url,
			UpdatedAt: sl.updatedAt,
		})
		sl.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		return out[i].Retailer < out[j].Retailer
	})
	return out
}

// Len returns the number of observed keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
