package retailer

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// PageRule decides availability from product page markup.
//
// In stock means at least one Positive marker and no Negative marker appear in the raw markup.
// Price comes from the first PriceSelectors match, then from PricePattern over the markup.
type PageRule struct {
	Positive []string
	Negative []string

	// PriceSelectors are tried in order; the content attribute wins over text.
	PriceSelectors []string
	// PricePattern's first submatch is the price. Optional.
	PricePattern *regexp.Regexp
}

var defaultPriceSelectors = []string{
	`meta[itemprop="price"]`,
	`meta[property="product:price:amount"]`,
	`[itemprop="price"]`,
}

// Evaluate applies the rule to one page.
func (r PageRule) Evaluate(body []byte) (bool, decimal.NullDecimal, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false, decimal.NullDecimal{}, err
	}
	html := string(body)

	return r.inStock(html), r.price(doc, html), nil
}

func (r PageRule) inStock(html string) bool {
	for _, neg := range r.Negative {
		if strings.Contains(html, neg) {
			return false
		}
	}
	for _, pos := range r.Positive {
		if strings.Contains(html, pos) {
			return true
		}
	}
	return false
}

func (r PageRule) price(doc *goquery.Document, html string) decimal.NullDecimal {
	for _, sel := range r.PriceSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		raw, ok := node.Attr("content")
		if !ok {
			raw = node.Text()
		}
		if p, ok := ParsePrice(raw); ok {
			return p
		}
	}
	if r.PricePattern == nil {
		return decimal.NullDecimal{}
	}
	m := r.PricePattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return decimal.NullDecimal{}
	}
	p, _ := ParsePrice(m[1])
	return p
}
