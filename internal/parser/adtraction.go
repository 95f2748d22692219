package parser

import (
	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
)

type adtractionParser struct{}

func (adtractionParser) Program() domain.Program {
	return domain.ProgramAdtraction
}

func (p adtractionParser) Parse(row feed.Row) (domain.FeedRecord, bool, error) {
	ean, ok := parseEAN(row.Get("Ean"))
	if !ok {
		return domain.FeedRecord{}, false, nil
	}

	price, err := parsePrice(p.Program(), "Price", row.Get("Price"), true)
	if err != nil {
		return domain.FeedRecord{}, false, err
	}

	return domain.FeedRecord{
		EAN:         ean,
		Price:       price,
		Stock:       boolStock(row.Get("Instock") == "yes"),
		Description: row.Get("Description"),
		Category:    row.Get("Category"),
		Image:       row.Get("ImageUrl"),
		Link:        row.Get("TrackingUrl"),
	}, true, nil
}
