package monitor_test

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/yourneighborhoodchef/pokerestock/internal/logging"
	"github.com/yourneighborhoodchef/pokerestock/internal/monitor"
	"github.com/yourneighborhoodchef/pokerestock/internal/retailer"
	"github.com/yourneighborhoodchef/pokerestock/internal/state"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

type flipChecker struct{ calls int }

func (c *flipChecker) Key() stock.RetailerKey { return stock.Walmart }
func (c *flipChecker) Name() string           { return "Walmart" }
func (c *flipChecker) Color() int             { return 0x0071CE }

func (c *flipChecker) Check(_ context.Context, p stock.Product) stock.Outcome {
	id, ok := p.ID(stock.Walmart)
	if !ok {
		return stock.Absent()
	}
	c.calls++
	return stock.Read(stock.Reading{
		InStock: c.calls > 1,
		Price:   decimal.NewNullDecimal(decimal.RequireFromString("49.99")),
		URL:     "https://www.walmart.com/ip/" + id,
	})
}

type printNotifier struct{}

func (printNotifier) Send(_ context.Context, ev stock.Event) error {
	fmt.Printf("restock: %s at %s %s %s\n", ev.Product, ev.RetailerName, ev.PriceLabel("?"), ev.URL)
	return nil
}

func Example() {
	products := []stock.Product{{Name: "Box A", IDs: map[stock.RetailerKey]string{stock.Walmart: "111"}}}
	s := monitor.New(products, retailer.NewRegistry(&flipChecker{}), state.New(), printNotifier{}, monitor.Options{
		Logger: logging.New(io.Discard, io.Discard, false, 0),
	})

	for i := 0; i < 3; i++ {
		r := s.RunCycle(context.Background())
		fmt.Printf("cycle %d: readings=%d restocks=%d\n", r.Cycle, r.Readings, r.Restocks)
	}
	// Output:
	// cycle 1: readings=1 restocks=0
	// restock: Box A at Walmart $49.99 https://www.walmart.com/ip/111
	// cycle 2: readings=1 restocks=1
	// cycle 3: readings=1 restocks=0
}
