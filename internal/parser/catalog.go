package parser

import (
	"strconv"
	"strings"

	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
)

// catalogProgram labels parse errors raised by the catalog feed.
const catalogProgram domain.Program = "Catalog"

// ParseCatalogRow reads one row of the catalog export (SKU, Name, Description,
// Regular price). ok is false for rows without a SKU.
func ParseCatalogRow(row feed.Row) (game domain.Game, ok bool, err error) {
	sku := strings.TrimSpace(row.Get("SKU"))
	if sku == "" {
		return domain.Game{}, false, nil
	}

	ean, err := strconv.ParseInt(sku, 10, 64)
	if err != nil || ean <= 0 {
		return domain.Game{}, false, &domain.ParseError{Program: catalogProgram, Field: "SKU", Value: sku, Err: errInvalidCode}
	}

	price, err := ParseDutchPrice(row.Get("Regular price"))
	if err != nil {
		return domain.Game{}, false, &domain.ParseError{Program: catalogProgram, Field: "Regular price", Value: row.Get("Regular price"), Err: err}
	}

	return domain.Game{
		EAN:             ean,
		Name:            row.Get("Name"),
		Description:     row.Get("Description"),
		New:             false,
		LastLowestPrice: price,
	}, true, nil
}

// ParseDutchPrice parses prices written as 1.234,56. Empty input is 0.
func ParseDutchPrice(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	value = strings.ReplaceAll(value, ".", "")
	value = strings.ReplaceAll(value, ",", ".")
	return parseDecimal(value)
}
