// Package parser normalizes affiliate feed rows into domain.FeedRecord values.
// Each affiliate program has its own field names and stock rules; parsers are
// selected by program through a static table.
package parser

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"datafeeder/internal/domain"
	"datafeeder/internal/feed"
)

// Parser turns one feed row into a record. ok is false when the row has no
// usable product code; such rows are skipped, not reported. A malformed numeric
// field is returned as a *domain.ParseError.
type Parser interface {
	Program() domain.Program
	Parse(row feed.Row) (record domain.FeedRecord, ok bool, err error)
}

var (
	errInvalidCode    = errors.New("not a positive integer")
	errInvalidDecimal = errors.New("not a decimal number")
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// parseDecimal accepts plain decimal notation only. NaN, infinities, exponents
// and hex floats are rejected.
func parseDecimal(value string) (float64, error) {
	if !decimalPattern.MatchString(value) {
		return 0, errInvalidDecimal
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errInvalidDecimal
	}
	return f, nil
}

var parsers = map[domain.Program]Parser{
	domain.ProgramAdtraction:   adtractionParser{},
	domain.ProgramTradeTracker: tradeTrackerParser{},
	domain.ProgramAwin:         awinParser{},
	domain.ProgramDaisycon:     daisyconParser{},
}

// For returns the parser registered for a program.
func For(program domain.Program) (Parser, bool) {
	p, ok := parsers[program]
	return p, ok
}

// Programs lists the programs that have a parser.
func Programs() []domain.Program {
	return []domain.Program{
		domain.ProgramAdtraction,
		domain.ProgramTradeTracker,
		domain.ProgramAwin,
		domain.ProgramDaisycon,
	}
}

// parseEAN accepts positive integers only.
func parseEAN(raw string) (int64, bool) {
	ean, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ean <= 0 {
		return 0, false
	}
	return ean, true
}

// parsePrice reads a price, treating an empty value as 0. With commaDecimal a
// decimal comma is accepted.
func parsePrice(program domain.Program, field, raw string, commaDecimal bool) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	if commaDecimal {
		value = strings.ReplaceAll(value, ",", ".")
	}

	price, err := parseDecimal(value)
	if err != nil {
		return 0, &domain.ParseError{Program: program, Field: field, Value: raw, Err: err}
	}
	return price, nil
}

// parseQuantity reads a stock amount, treating an empty value as 0 and
// clamping negatives to 0.
func parseQuantity(program domain.Program, field, raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &domain.ParseError{Program: program, Field: field, Value: raw, Err: err}
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

func boolStock(inStock bool) int {
	if inStock {
		return 1
	}
	return 0
}
