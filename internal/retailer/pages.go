package retailer

import (
	"context"
	"fmt"
	"regexp"

	http "github.com/bogdanfinn/fhttp"

	"github.com/yourneighborhoodchef/pokerestock/internal/client"
	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/headers"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

// PageChecker fetches a product page and applies a PageRule to it.
type PageChecker struct {
	key   stock.RetailerKey
	name  string
	color int
	doer  client.Doer

	urlFor func(id string) string
	rule   PageRule
}

// NewPageChecker builds a page-scraping checker. urlFor maps an identifier to the product page.
func NewPageChecker(key stock.RetailerKey, name string, color int, doer client.Doer, urlFor func(string) string, rule PageRule) *PageChecker {
	return &PageChecker{key: key, name: name, color: color, doer: doer, urlFor: urlFor, rule: rule}
}

func (c *PageChecker) Key() stock.RetailerKey { return c.key }
func (c *PageChecker) Name() string           { return c.name }
func (c *PageChecker) Color() int             { return c.color }

func (c *PageChecker) Check(ctx context.Context, p stock.Product) stock.Outcome {
	id, ok := p.ID(c.key)
	if !ok {
		return stock.Absent()
	}
	url := c.urlFor(id)
	return fetchPage(ctx, c.doer, c.key, url, c.rule)
}

func fetchPage(ctx context.Context, doer client.Doer, key stock.RetailerKey, url string, rule PageRule) stock.Outcome {
	source := string(key)
	resp, err := client.Fetch(ctx, doer, source, http.MethodGet, url, headers.Build(headers.HTML, "", ""), nil)
	if err != nil {
		return stock.Fail(err)
	}
	if !resp.OK() {
		return stock.Fail(client.StatusError(source, resp))
	}
	inStock, price, err := rule.Evaluate(resp.Body)
	if err != nil {
		return stock.Fail(errs.New(source, errs.CodeParse, errs.WithMessage("parse product page"), errs.WithCause(err)))
	}
	return stock.Read(stock.Reading{InStock: inStock, Price: price, URL: url})
}

// NewBestBuy checks https://www.bestbuy.com/site/-/<sku>.p.
func NewBestBuy(doer client.Doer) *PageChecker {
	return NewPageChecker(stock.BestBuy, "Best Buy", 0x0046BE, doer,
		func(id string) string { return fmt.Sprintf("https://www.bestbuy.com/site/-/%s.p", id) },
		PageRule{
			Positive:       []string{"Add to Cart"},
			Negative:       []string{"Sold Out", "Coming Soon", "unavailable"},
			PriceSelectors: defaultPriceSelectors,
			PricePattern:   regexp.MustCompile(`\$(\d[\d,]*(?:\.\d{2})?)`),
		})
}

// NewPokemonCenter checks https://www.pokemoncenter.com/product/<id>.
func NewPokemonCenter(doer client.Doer) *PageChecker {
	return NewPageChecker(stock.PokemonCenter, "Pokemon Center", 0xFFCB05, doer,
		func(id string) string { return "https://www.pokemoncenter.com/product/" + id },
		PageRule{
			Positive:       []string{"Add to Bag"},
			Negative:       []string{"Out of Stock", "Sold Out"},
			PriceSelectors: defaultPriceSelectors,
			PricePattern:   regexp.MustCompile(`\$(\d[\d,]*\.\d{2})`),
		})
}

// NewGameStop checks https://www.gamestop.com/products/<id>.
func NewGameStop(doer client.Doer) *PageChecker {
	return NewPageChecker(stock.GameStop, "GameStop", 0xED1C24, doer,
		func(id string) string { return "https://www.gamestop.com/products/" + id },
		PageRule{
			Positive:       []string{"Add to Cart"},
			Negative:       []string{"Not Available", "Out of Stock"},
			PriceSelectors: defaultPriceSelectors,
			PricePattern:   regexp.MustCompile(`\$(\d[\d,]*\.\d{2})`),
		})
}
