package totals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		lang   string
		code   string
		want   string
	}{
		{name: "english dollars", amount: 1234.5, lang: "en", code: "USD", want: "$1,234.50"},
		{name: "german euro", amount: 1234.5, lang: "de", code: "EUR", want: "1.234,50 €"},
		{name: "lower case code", amount: 10, lang: "en", code: "gbp", want: "£10.00"},
		{name: "rounds to two digits", amount: 2.005001, lang: "en", code: "EUR", want: "€2.01"},
		{name: "code without symbol", amount: 5, lang: "en", code: "CAD", want: "CAD 5.00"},
		{name: "not a number", amount: math.NaN(), lang: "en", code: "USD", want: "$0.00"},
		{name: "unparsable language", amount: 1, lang: "???", code: "USD", want: "$1.00"},
		{name: "empty currency", amount: 1, lang: "en", code: "", want: "€1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.amount, tt.lang, tt.code))
		})
	}
}

func TestFormatTotals(t *testing.T) {
	f := FormatTotals(model.Totals{Subtotal: 100, VATAmount: 20, GrandTotal: 120}, "en", "USD")

	assert.Equal(t, "$100.00", f.Subtotal)
	assert.Equal(t, "$20.00", f.VATAmount)
	assert.Equal(t, "$0.00", f.Transport)
	assert.Equal(t, "$0.00", f.OtherCosts)
	assert.Equal(t, "$120.00", f.GrandTotal)
}
