package parser

import (
	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
)

type daisyconParser struct{}

func (daisyconParser) Program() domain.Program {
	return domain.ProgramDaisycon
}

func (p daisyconParser) Parse(row feed.Row) (domain.FeedRecord, bool, error) {
	ean, ok := parseEAN(row.Get("ean"))
	if !ok {
		return domain.FeedRecord{}, false, nil
	}

	price, err := parsePrice(p.Program(), "price", row.Get("price"), false)
	if err != nil {
		return domain.FeedRecord{}, false, err
	}

	amount, err := parseQuantity(p.Program(), "in_stock_amount", row.Get("in_stock_amount"))
	if err != nil {
		return domain.FeedRecord{}, false, err
	}

	return domain.FeedRecord{
		EAN:         ean,
		Price:       price,
		Stock:       boolStock(amount > 0),
		Description: row.Get("description"),
		Category:    row.Get("category"),
		Image:       row.Get("image_default"),
		Link:        row.Get("link"),
	}, true, nil
}
