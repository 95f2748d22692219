package domain

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

type Game struct {
	EAN             int64   `db:"ean"`
	Name            string  `db:"name"`
	Description     string  `db:"description"`
	New             bool    `db:"new"`
	LastLowestPrice float64 `db:"last_lowest_price"`
	Offers          []Offer `db:"-"`
}

// Stock is the summed stock of every affiliate offer for the game.
func (g *Game) Stock() int {
	total := 0
	for _, o := range g.Offers {
		total += o.Stock
	}
	return total
}

func (g *Game) AffiliateCount() int {
	return len(g.Offers)
}

// AvailableOffers returns the in-stock offers, cheapest first.
func (g *Game) AvailableOffers() []Offer {
	var available []Offer
	for _, o := range g.Offers {
		if o.Stock > 0 {
			available = append(available, o)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Price < available[j].Price
	})
	return available
}

// LowestAvailablePrice reports the cheapest in-stock price, if any offer has stock.
func (g *Game) LowestAvailablePrice() (float64, bool) {
	available := g.AvailableOffers()
	if len(available) == 0 {
		return 0, false
	}
	return available[0].Price, true
}

// CleanDescription returns the description as plain text.
func (g *Game) CleanDescription() string {
	text := html.UnescapeString(g.Description)
	tokenizer := html.NewTokenizer(strings.NewReader(text))

	var sb strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			out := strings.ReplaceAll(sb.String(), `\n`, " ")
			return strings.TrimSpace(out)
		case html.TextToken:
			sb.Write(tokenizer.Text())
		}
	}
}

type Program string

const (
	ProgramAdtraction   Program = "Adtraction"
	ProgramTradeTracker Program = "TradeTracker"
	ProgramAwin         Program = "Awin"
	ProgramDaisycon     Program = "Daisycon"
)

type Affiliate struct {
	ID             int64   `db:"id"`
	Name           string  `db:"name"`
	Program        Program `db:"program"`
	Enabled        bool    `db:"enabled"`
	DataSourceURL  string  `db:"data_source_url"`
	Tariff         string  `db:"tariff"`
	ShippingNL     float64 `db:"shipping_nl"`
	ShippingBE     float64 `db:"shipping_be"`
	FreeShippingNL float64 `db:"free_shipping_nl"`
	FreeShippingBE float64 `db:"free_shipping_be"`
	ShippingNote   string  `db:"shipping_note"`
}

type Category struct {
	ID          int64  `db:"id"`
	AffiliateID int64  `db:"affiliate_id"`
	Name        string `db:"name"`
	Include     bool   `db:"include"`
}

type Offer struct {
	AffiliateID int64   `db:"affiliate_id" json:"affiliate_id"`
	GameEAN     int64   `db:"game_ean" json:"game_ean"`
	CategoryID  *int64  `db:"category_id" json:"category_id,omitempty"`
	Price       float64 `db:"price" json:"price"`
	Stock       int     `db:"stock" json:"stock"`
	Description string  `db:"description" json:"description"`
	Image       string  `db:"image" json:"image"`
	Link        string  `db:"link" json:"link"`
}
