package parser

import (
	"strings"

	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
)

// availableLabel is the availability value TradeTracker merchants use for items in stock.
const availableLabel = "op voorraad"

type tradeTrackerParser struct{}

func (tradeTrackerParser) Program() domain.Program {
	return domain.ProgramTradeTracker
}

func (p tradeTrackerParser) Parse(row feed.Row) (domain.FeedRecord, bool, error) {
	ean, ok := parseEAN(row.First("EAN", "GTIN"))
	if !ok {
		return domain.FeedRecord{}, false, nil
	}

	price, err := parsePrice(p.Program(), "price", row.Get("price"), false)
	if err != nil {
		return domain.FeedRecord{}, false, err
	}

	return domain.FeedRecord{
		EAN:         ean,
		Price:       price,
		Stock:       boolStock(strings.ToLower(row.Get("availability")) == availableLabel),
		Description: row.Get("description"),
		Category:    row.Get("categories"),
		Image:       row.Get("imageURL"),
		Link:        row.Get("productURL"),
	}, true, nil
}
