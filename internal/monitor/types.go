package monitor

import (
	"time"

	"github.com/yourneighborhoodchef/pokerestock/internal/retailer"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

// Task is one check of a product at a retailer within a cycle.
type Task struct {
	Product stock.Product
	Checker retailer.Checker
}

// Key returns the state key the task evaluates.
func (t Task) Key() stock.Key {
	return stock.Key{Product: t.Product.Name, Retailer: t.Checker.Key()}
}

// Result is a finished task.
type Result struct {
	Task    Task
	Outcome stock.Outcome
	Latency time.Duration
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	Cycle    int64
	Tasks    int
	Readings int
	Failures int
	Skipped  int
	Restocks int
	Alerts   int
	Duration time.Duration
	// Aborted is set when the context ended mid-cycle; results were discarded.
	Aborted bool
}

// Health is the scheduler's liveness view.
type Health struct {
	Cycles         int64     `json:"cycles"`
	LastCycleStart time.Time `json:"last_cycle_start,omitempty"`
	LastCycleEnd   time.Time `json:"last_cycle_end,omitempty"`
	LastCycleTasks int       `json:"last_cycle_tasks"`
	Stale          bool      `json:"stale"`
}
