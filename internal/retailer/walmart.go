package retailer

import (
	"context"

	http "github.com/bogdanfinn/fhttp"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/yourneighborhoodchef/pokerestock/internal/client"
	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/headers"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

const (
	walmartAPI  = "https://www.walmart.com/terra-firma/item/"
	walmartPage = "https://www.walmart.com/ip/"
)

type walmartItem struct {
	Product struct {
		AvailabilityStatus string  `json:"availabilityStatus"`
		OrderLimit         float64 `json:"orderLimit"`
		PriceInfo          struct {
			CurrentPrice struct {
				Price decimal.NullDecimal `json:"price"`
			} `json:"currentPrice"`
		} `json:"priceInfo"`
	} `json:"product"`
}

// Walmart queries the item API and falls back to the product page when the API refuses.
type Walmart struct {
	doer     client.Doer
	fallback PageRule
}

func NewWalmart(doer client.Doer) *Walmart {
	return &Walmart{
		doer: doer,
		fallback: PageRule{
			Positive:       []string{"Add to cart", "addToCart"},
			Negative:       []string{"Out of stock", "unavailable"},
			PriceSelectors: defaultPriceSelectors,
		},
	}
}

func (w *Walmart) Key() stock.RetailerKey { return stock.Walmart }
func (w *Walmart) Name() string           { return "Walmart" }
func (w *Walmart) Color() int             { return 0x0071CE }

func (w *Walmart) Check(ctx context.Context, p stock.Product) stock.Outcome {
	id, ok := p.ID(stock.Walmart)
	if !ok {
		return stock.Absent()
	}
	page := walmartPage + id

	resp, err := client.Fetch(ctx, w.doer, string(stock.Walmart), http.MethodGet, walmartAPI+id,
		headers.Build(headers.JSON, "", page), nil)
	if err != nil {
		return stock.Fail(err)
	}
	if !resp.OK() {
		return fetchPage(ctx, w.doer, stock.Walmart, page, w.fallback)
	}

	inStock, price, err := parseWalmartItem(resp.Body)
	if err != nil {
		return stock.Fail(errs.New(string(stock.Walmart), errs.CodeParse, errs.WithHTTP(resp.StatusCode),
			errs.WithMessage(client.Sample(resp.Body)), errs.WithCause(err)))
	}
	return stock.Read(stock.Reading{InStock: inStock, Price: price, URL: page})
}

func parseWalmartItem(body []byte) (bool, decimal.NullDecimal, error) {
	var item walmartItem
	if err := json.Unmarshal(body, &item); err != nil {
		return false, decimal.NullDecimal{}, err
	}
	inStock := item.Product.AvailabilityStatus == "IN_STOCK" || item.Product.OrderLimit > 0
	return inStock, item.Product.PriceInfo.CurrentPrice.Price, nil
}
