package totals

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF",
	"BGN": "лв.",
	"RON": "lei",
	"PLN": "zł",
	"CZK": "Kč",
	"HUF": "Ft",
	"SEK": "kr",
	"DKK": "kr.",
	"NOK": "kr",
	"RUB": "₽",
	"UAH": "₴",
	"TRY": "₺",
}

// Языки, в которых символ валюты пишется после суммы.
var suffixLanguages = map[string]bool{
	"bg": true, "cs": true, "da": true, "de": true, "el": true, "es": true,
	"fi": true, "fr": true, "hr": true, "hu": true, "it": true, "lt": true,
	"lv": true, "no": true, "nb": true, "pl": true, "pt": true, "ro": true,
	"ru": true, "sk": true, "sl": true, "sv": true, "uk": true,
}

// FormatCurrency форматирует сумму по правилам языка lang в валюте code
// с ровно двумя знаками после запятой.
func FormatCurrency(amount float64, lang, code string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		tag = language.English
	}

	iso := strings.ToUpper(strings.TrimSpace(code))
	if unit, err := currency.ParseISO(iso); err == nil {
		iso = unit.String()
	} else if iso == "" {
		iso = model.DefaultCurrency
	}

	sym, ok := symbols[iso]
	if !ok {
		sym = iso
	}

	p := message.NewPrinter(tag)
	digits := p.Sprint(number.Decimal(finite(amount), number.Scale(2)))

	base, _ := tag.Base()
	if suffixLanguages[base.String()] {
		return digits + " " + sym
	}
	if len([]rune(sym)) > 1 {
		return sym + " " + digits
	}
	return sym + digits
}

// FormatTotals форматирует все суммы итогов.
func FormatTotals(t model.Totals, lang, code string) model.FormattedTotals {
	return model.FormattedTotals{
		Subtotal:   FormatCurrency(t.Subtotal, lang, code),
		VATAmount:  FormatCurrency(t.VATAmount, lang, code),
		Transport:  FormatCurrency(t.Transport, lang, code),
		OtherCosts: FormatCurrency(t.OtherCosts, lang, code),
		GrandTotal: FormatCurrency(t.GrandTotal, lang, code),
	}
}
