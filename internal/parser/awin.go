package parser

import (
	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
)

type awinParser struct{}

func (awinParser) Program() domain.Program {
	return domain.ProgramAwin
}

func (p awinParser) Parse(row feed.Row) (domain.FeedRecord, bool, error) {
	ean, ok := parseEAN(row.Get("ean"))
	if !ok {
		return domain.FeedRecord{}, false, nil
	}

	price, err := parsePrice(p.Program(), "store_price", row.Get("store_price"), true)
	if err != nil {
		return domain.FeedRecord{}, false, err
	}

	stock, err := parseQuantity(p.Program(), "stock_quantity", row.Get("stock_quantity"))
	if err != nil {
		return domain.FeedRecord{}, false, err
	}

	return domain.FeedRecord{
		EAN:         ean,
		Price:       price,
		Stock:       stock,
		Description: row.Get("description"),
		Category:    row.Get("merchant_category"),
		Image:       row.Get("merchant_image_url"),
		Link:        row.Get("aw_deep_link"),
	}, true, nil
}
