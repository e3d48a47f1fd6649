package retailer

import (
	"context"
	"fmt"
	"sync"

	http "github.com/bogdanfinn/fhttp"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/yourneighborhoodchef/pokerestock/internal/client"
	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/headers"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

const (
	redskyKey   = "9f36aeafbe60771e321a7cc95a78140772ab3e96"
	redskyStore = "1286"
)

type redskyFulfillment struct {
	Data struct {
		Product struct {
			Fulfillment struct {
				ShippingOptions struct {
					Available          bool   `json:"available"`
					AvailabilityStatus string `json:"availability_status"`
				} `json:"shipping_options"`
				StoreOptions []struct {
					InStoreOnly struct {
						Available bool `json:"available"`
					} `json:"in_store_only"`
					OrderPickup struct {
						Available bool `json:"available"`
					} `json:"order_pickup"`
				} `json:"store_options"`
				SoldOut bool `json:"sold_out"`
			} `json:"fulfillment"`
			Price struct {
				CurrentRetail decimal.NullDecimal `json:"current_retail"`
			} `json:"price"`
		} `json:"product"`
	} `json:"data"`
}

// Target queries the redsky fulfillment API.
type Target struct {
	doer client.Doer

	// A 404 right after a 200 usually means the header profiles got flagged.
	mu         sync.Mutex
	prevStatus int
}

func NewTarget(doer client.Doer) *Target {
	return &Target{doer: doer}
}

func (t *Target) Key() stock.RetailerKey { return stock.Target }
func (t *Target) Name() string           { return "Target" }
func (t *Target) Color() int             { return 0xCC0000 }

func targetAPI(tcin string) string {
	return fmt.Sprintf(
		"https://redsky.target.com/redsky_aggregations/v1/web/pdp_fulfillment_v1"+
			"?key=%s&tcin=%s&store_id=%s&scheduled_delivery_store_id=%s",
		redskyKey, tcin, redskyStore, redskyStore,
	)
}

func (t *Target) Check(ctx context.Context, p stock.Product) stock.Outcome {
	tcin, ok := p.ID(stock.Target)
	if !ok {
		return stock.Absent()
	}
	page := "https://www.target.com/p/-/A-" + tcin

	resp, err := client.Fetch(ctx, t.doer, string(stock.Target), http.MethodGet, targetAPI(tcin),
		headers.Build(headers.JSON, "https://www.target.com", page), nil)
	if err != nil {
		return stock.Fail(err)
	}
	t.observe(resp.StatusCode)
	if !resp.OK() {
		return stock.Fail(client.StatusError(string(stock.Target), resp))
	}

	inStock, price, err := parseRedsky(resp.Body)
	if err != nil {
		return stock.Fail(errs.New(string(stock.Target), errs.CodeParse, errs.WithHTTP(resp.StatusCode),
			errs.WithMessage(client.Sample(resp.Body)), errs.WithCause(err)))
	}
	return stock.Read(stock.Reading{InStock: inStock, Price: price, URL: page})
}

func (t *Target) observe(status int) {
	t.mu.Lock()
	prev := t.prevStatus
	t.prevStatus = status
	t.mu.Unlock()

	if status == http.StatusNotFound && prev == http.StatusOK {
		headers.ResetProfilePool()
		go headers.InitProfilePool(50)
	}
}

func parseRedsky(body []byte) (bool, decimal.NullDecimal, error) {
	var r redskyFulfillment
	if err := json.Unmarshal(body, &r); err != nil {
		return false, decimal.NullDecimal{}, err
	}
	f := r.Data.Product.Fulfillment
	price := r.Data.Product.Price.CurrentRetail

	if f.ShippingOptions.Available {
		return true, price, nil
	}
	if len(f.StoreOptions) > 0 {
		first := f.StoreOptions[0]
		if first.InStoreOnly.Available || first.OrderPickup.Available {
			return true, price, nil
		}
	}
	switch f.ShippingOptions.AvailabilityStatus {
	case "IN_STOCK", "LIMITED_STOCK", "PRE_ORDER_SELLABLE":
		return true, price, nil
	}
	return false, price, nil
}
