package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGame_Offers(t *testing.T) {
	game := Game{
		EAN: 8710000000001,
		Offers: []Offer{
			{AffiliateID: 1, Price: 24.99, Stock: 2},
			{AffiliateID: 2, Price: 19.99, Stock: 0},
			{AffiliateID: 3, Price: 21.50, Stock: 1},
			{AffiliateID: 4, Price: 21.50, Stock: 4},
		},
	}

	assert.Equal(t, 7, game.Stock())
	assert.Equal(t, 4, game.AffiliateCount())

	available := game.AvailableOffers()
	if assert.Len(t, available, 3) {
		assert.Equal(t, int64(3), available[0].AffiliateID)
		assert.Equal(t, int64(4), available[1].AffiliateID)
		assert.Equal(t, int64(1), available[2].AffiliateID)
	}

	price, ok := game.LowestAvailablePrice()
	assert.True(t, ok)
	assert.Equal(t, 21.50, price)
}

func TestGame_LowestAvailablePrice_NoStock(t *testing.T) {
	game := Game{Offers: []Offer{{Price: 10, Stock: 0}}}

	_, ok := game.LowestAvailablePrice()
	assert.False(t, ok)
	assert.Empty(t, game.AvailableOffers())
}

func TestGame_CleanDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"plain", "Een klassiek bordspel", "Een klassiek bordspel"},
		{"tags", "<p>Handel <b>en</b> bouw</p>", "Handel en bouw"},
		{"escaped tags", "&lt;p&gt;Ruil grondstoffen&lt;/p&gt;", "Ruil grondstoffen"},
		{"entities", "Kaart &amp; dobbelsteen", "Kaart & dobbelsteen"},
		{"literal newline", `Regel een\nregel twee`, "Regel een regel twee"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Game{Description: tt.description}
			assert.Equal(t, tt.want, g.CleanDescription())
		})
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ParseError{Program: ProgramAwin, Field: "store_price", Value: "x", Err: errors.New("bad")}, "data_quality"},
		{fmt.Errorf("record 3: %w", &ParseError{Program: ProgramAwin, Err: errors.New("bad")}), "data_quality"},
		{&DecodeError{Reason: "invalid utf-8"}, "decoding"},
		{&FetchError{Source: "https://feeds.example", StatusCode: 500}, "connectivity"},
		{fmt.Errorf("%w: %q", ErrUnknownProgram, "Bol"), "configuration"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestFetchError_Message(t *testing.T) {
	assert.Equal(t, "fetch feed.csv: unexpected status 503",
		(&FetchError{Source: "feed.csv", StatusCode: 503}).Error())

	cause := errors.New("connection refused")
	err := &FetchError{Source: "feed.csv", Err: cause}
	assert.Equal(t, "fetch feed.csv: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}
