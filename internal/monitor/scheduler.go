// Package monitor drives check cycles: it fans out every (product, retailer) check, feeds the
// readings to the state store and hands restocks to the notifier.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/logging"
	"github.com/yourneighborhoodchef/pokerestock/internal/notify"
	"github.com/yourneighborhoodchef/pokerestock/internal/ratelimit"
	"github.com/yourneighborhoodchef/pokerestock/internal/retailer"
	"github.com/yourneighborhoodchef/pokerestock/internal/state"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
	"github.com/yourneighborhoodchef/pokerestock/internal/telemetry"
)

// Options tunes a Scheduler. Zero values fall back to the defaults below.
type Options struct {
	// Interval is the wait after a cycle finishes before the next one starts.
	// Values in the low seconds risk upstream throttling or blocking.
	Interval       time.Duration
	CheckTimeout   time.Duration
	NotifyTimeout  time.Duration
	MaxConcurrency int

	Limiters *ratelimit.Limiters
	Metrics  *telemetry.Metrics
	Logger   *logging.Logger
}

const (
	defaultInterval       = 30 * time.Second
	defaultCheckTimeout   = 20 * time.Second
	defaultNotifyTimeout  = 10 * time.Second
	defaultMaxConcurrency = 8
)

// Scheduler runs check cycles. Cycles never overlap.
type Scheduler struct {
	products []stock.Product
	registry *retailer.Registry
	store    *state.Store
	notifier notify.Notifier
	opts     Options
	log      *logging.Logger
	now      func() time.Time

	cycleMu sync.Mutex
	cycles  atomic.Int64

	healthMu  sync.RWMutex
	startedAt time.Time
	lastStart time.Time
	lastEnd   time.Time
	lastTasks int
}

// New builds a scheduler. The store is owned by the caller.
func New(products []stock.Product, registry *retailer.Registry, store *state.Store, notifier notify.Notifier, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaultCheckTimeout
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	s := &Scheduler{
		products: products,
		registry: registry,
		store:    store,
		notifier: notifier,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
	s.startedAt = s.now()
	return s
}

// BuildTasks returns one task per product and registered retailer the product has an identifier for,
// in product then registry order.
func BuildTasks(products []stock.Product, registry *retailer.Registry) []Task {
	var tasks []Task
	for _, p := range products {
		for _, c := range registry.All() {
			if _, ok := p.ID(c.Key()); ok {
				tasks = append(tasks, Task{Product: p, Checker: c})
			}
		}
	}
	return tasks
}

// Run executes one cycle immediately, then waits Interval after each cycle before the next.
// It returns ctx.Err() once ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg conc.WaitGroup
	defer wg.Wait()
	wg.Go(func() { s.heartbeat(ctx) })

	s.RunCycle(ctx)

	timer := time.NewTimer(s.opts.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		s.RunCycle(ctx)
		timer.Reset(s.opts.Interval)
	}
}

// RunCycle checks every task concurrently, waits for all of them, then evaluates results in task
// order. Concurrent callers are serialized.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := s.now()
	tasks := BuildTasks(s.products, s.registry)
	report := CycleReport{Cycle: s.cycles.Load() + 1, Tasks: len(tasks)}

	s.healthMu.Lock()
	s.lastStart = start
	s.healthMu.Unlock()

	s.log.Status(logging.StatusMessage{Status: logging.CycleStart, Cycle: report.Cycle, Tasks: report.Tasks})

	results := make([]Result, len(tasks))
	p := pool.New().WithMaxGoroutines(s.opts.MaxConcurrency)
	for i, t := range tasks {
		p.Go(func() {
			results[i] = s.check(ctx, t)
		})
	}
	p.Wait()

	if ctx.Err() != nil {
		report.Aborted = true
		report.Duration = s.now().Sub(start)
		return report
	}

	for _, r := range results {
		s.handle(ctx, r, &report)
	}

	end := s.now()
	report.Duration = end.Sub(start)
	s.cycles.Add(1)

	s.healthMu.Lock()
	s.lastEnd = end
	s.lastTasks = report.Tasks
	s.healthMu.Unlock()

	s.opts.Metrics.RecordCycle(ctx, report.Duration)
	s.log.Status(logging.StatusMessage{
		Status:  logging.CycleDone,
		Cycle:   report.Cycle,
		Tasks:   report.Tasks,
		Latency: report.Duration.Seconds(),
	})
	return report
}

func (s *Scheduler) check(ctx context.Context, t Task) (res Result) {
	start := s.now()
	res.Task = t
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = stock.Fail(errs.New(string(t.Checker.Key()), errs.CodeInvalid,
				errs.WithMessage(fmt.Sprintf("checker panic: %v", r))))
		}
		res.Latency = s.now().Sub(start)
	}()

	s.log.Status(logging.StatusMessage{Status: logging.CheckStart, Product: t.Product.Name, Retailer: t.Checker.Name()})

	// Queueing for a token is bounded by the cycle context only; CheckTimeout covers the request.
	if err := s.opts.Limiters.Wait(ctx, string(t.Checker.Key())); err != nil {
		res.Outcome = stock.Fail(errs.New(string(t.Checker.Key()), errs.CodeNetwork,
			errs.WithMessage("rate limit wait"), errs.WithCause(err)))
		return res
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.CheckTimeout)
	defer cancel()
	res.Outcome = t.Checker.Check(cctx, t.Product)
	return res
}

func (s *Scheduler) handle(ctx context.Context, r Result, report *CycleReport) {
	c := r.Task.Checker
	retailerKey := string(c.Key())
	msg := logging.StatusMessage{
		Product:  r.Task.Product.Name,
		Retailer: c.Name(),
		Cycle:    report.Cycle,
		Latency:  r.Latency.Seconds(),
	}

	switch r.Outcome.Kind {
	case stock.OutcomeAbsent:
		report.Skipped++
		s.opts.Metrics.RecordCheck(ctx, retailerKey, "absent")
		msg.Status = logging.CheckSkipped
		s.log.Status(msg)

	case stock.OutcomeFailure:
		report.Failures++
		s.opts.Metrics.RecordCheck(ctx, retailerKey, "failure")
		msg.Status = logging.CheckFailed
		if r.Outcome.Err != nil {
			msg.Error = r.Outcome.Err.Error()
		}
		s.log.Status(msg)

	case stock.OutcomeReading:
		report.Readings++
		reading := r.Outcome.Reading
		decision := s.store.Evaluate(r.Task.Key(), reading)

		inStock := reading.InStock
		msg.InStock = &inStock
		msg.Price = reading.PriceLabel("")
		msg.URL = reading.URL

		outcome := "out_of_stock"
		if inStock {
			outcome = "in_stock"
		}
		s.opts.Metrics.RecordCheck(ctx, retailerKey, outcome)

		switch {
		case decision.Emit:
			report.Restocks++
			s.opts.Metrics.RecordRestock(ctx, retailerKey)
			msg.Status = logging.Restock
			s.log.Status(msg)
			ev := stock.NewEvent(r.Task.Product.Name, c.Key(), c.Name(), c.Color(), reading, s.now())
			if s.deliver(ctx, ev) {
				report.Alerts++
			}
		case inStock:
			msg.Status = logging.InStock
			s.log.Status(msg)
		default:
			msg.Status = logging.OutOfStock
			s.log.Status(msg)
		}
	}
}

// deliver sends ev within NotifyTimeout. Failures are logged and never retried.
func (s *Scheduler) deliver(ctx context.Context, ev stock.Event) bool {
	nctx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
	defer cancel()

	msg := logging.StatusMessage{
		Product:  ev.Product,
		Retailer: ev.RetailerName,
		Price:    ev.PriceLabel(""),
		URL:      ev.URL,
	}
	if err := s.notifier.Send(nctx, ev); err != nil {
		s.opts.Metrics.RecordNotification(ctx, "failed")
		msg.Status = logging.AlertFailed
		msg.Error = err.Error()
		s.log.Status(msg)
		return false
	}
	s.opts.Metrics.RecordNotification(ctx, "sent")
	msg.Status = logging.AlertSent
	s.log.Status(msg)
	return true
}

// Health reports cycle progress. Stale means no cycle finished within 2*Interval+CheckTimeout.
func (s *Scheduler) Health() Health {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()

	ref := s.lastEnd
	if ref.IsZero() {
		ref = s.startedAt
	}
	return Health{
		Cycles:         s.cycles.Load(),
		LastCycleStart: s.lastStart,
		LastCycleEnd:   s.lastEnd,
		LastCycleTasks: s.lastTasks,
		Stale:          s.now().Sub(ref) > s.staleAfter(),
	}
}

func (s *Scheduler) staleAfter() time.Duration {
	return 2*s.opts.Interval + s.opts.CheckTimeout
}

func (s *Scheduler) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		h := s.Health()
		if h.Stale {
			s.log.Status(logging.StatusMessage{Status: logging.Stalled, Cycle: h.Cycles,
				Error: fmt.Sprintf("no cycle finished in %s", s.staleAfter())})
			continue
		}
		s.log.Status(logging.StatusMessage{Status: logging.Heartbeat, Cycle: h.Cycles, Tasks: h.LastCycleTasks})
	}
}
