// Package totals рассчитывает и форматирует итоги коммерческого предложения.
package totals

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Compute рассчитывает итоги по строкам предложения и его настройкам.
// Отрицательные и нечисловые значения считаются нулём, поэтому функция не возвращает ошибок.
func Compute(products []model.Product, d model.OfferDetails) model.Totals {
	subtotal := decimal.Zero
	for _, p := range products {
		qty := nonNegative(p.Quantity)
		price := nonNegative(p.UnitPrice)
		subtotal = subtotal.Add(qty.Mul(price))
	}

	rate := vatRate(d.VATRate)
	transport := nonNegative(d.TransportCost)
	other := nonNegative(d.OtherCosts)

	var vat, grand decimal.Decimal
	if d.IncludeVAT {
		// Цены уже содержат НДС: выделяем его из подытога и не добавляем повторно.
		net := subtotal.Div(decimal.NewFromInt(1).Add(rate.Div(hundred)))
		vat = subtotal.Sub(net)
		grand = subtotal.Add(transport).Add(other)
	} else {
		vat = subtotal.Mul(rate).Div(hundred)
		grand = subtotal.Add(vat).Add(transport).Add(other)
	}

	return model.Totals{
		Subtotal:   subtotal.InexactFloat64(),
		VATAmount:  vat.InexactFloat64(),
		Transport:  transport.InexactFloat64(),
		OtherCosts: other.InexactFloat64(),
		GrandTotal: grand.InexactFloat64(),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) decimal.Decimal {
	v = finite(v)
	if v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func vatRate(v float64) decimal.Decimal {
	v = finite(v)
	switch {
	case v < 0:
		v = 0
	case v > 100:
		v = 100
	}
	return decimal.NewFromFloat(v)
}
