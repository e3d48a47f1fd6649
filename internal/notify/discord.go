package notify

import (
	"context"
	"time"

	http "github.com/bogdanfinn/fhttp"
	json "github.com/goccy/go-json"

	"github.com/yourneighborhoodchef/pokerestock/internal/client"
	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

const (
	alertColor  = 0x00ff00
	alertFooter = "PokeRestock Monitor - ACT FAST!"
)

type DiscordPayload struct {
	Embeds     []DiscordEmbed     `json:"embeds"`
	Components []DiscordActionRow `json:"components,omitempty"`
}

type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []DiscordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
	Footer      DiscordFooter  `json:"footer"`
}

type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordActionRow struct {
	Type       int             `json:"type"`
	Components []DiscordButton `json:"components"`
}

// DiscordButton with style 5 is a link button.
type DiscordButton struct {
	Type  int    `json:"type"`
	Style int    `json:"style"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// BuildDiscordPayload renders the alert embed for ev.
func BuildDiscordPayload(ev stock.Event) DiscordPayload {
	at := ev.DetectedAt
	if at.IsZero() {
		at = time.Now()
	}
	p := DiscordPayload{
		Embeds: []DiscordEmbed{{
			Title:       "🚨 RESTOCK ALERT: " + ev.Product,
			Description: "**" + ev.RetailerName + "** has this item IN STOCK!",
			Color:       alertColor,
			Fields: []DiscordField{
				{Name: "Retailer", Value: ev.RetailerName, Inline: true},
				{Name: "Price", Value: ev.PriceLabel("Check site"), Inline: true},
				{Name: "Product", Value: ev.Product},
			},
			Timestamp: at.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Footer:    DiscordFooter{Text: alertFooter},
		}},
	}
	// Discord rejects a link button without a URL.
	if ev.URL != "" {
		p.Components = []DiscordActionRow{{
			Type: 1,
			Components: []DiscordButton{{
				Type:  2,
				Style: 5,
				Label: "BUY NOW - " + ev.RetailerName,
				URL:   ev.URL,
			}},
		}}
	}
	return p
}

// Discord posts alerts to a webhook.
type Discord struct {
	webhook string
	doer    client.Doer
}

func NewDiscord(webhook string, doer client.Doer) *Discord {
	return &Discord{webhook: webhook, doer: doer}
}

func (d *Discord) Send(ctx context.Context, ev stock.Event) error {
	body, err := json.Marshal(BuildDiscordPayload(ev))
	if err != nil {
		return errs.New("discord", errs.CodeNotify, errs.WithMessage("encode payload"), errs.WithCause(err))
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	resp, err := client.Fetch(ctx, d.doer, "discord", http.MethodPost, d.webhook, h, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return errs.New("discord", errs.CodeNotify, errs.WithHTTP(resp.StatusCode), errs.WithMessage(client.Sample(resp.Body)))
	}
	return nil
}
