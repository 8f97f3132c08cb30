// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

const (
	minVATLen = 4
	maxVATLen = 16
)

// NormalizeVATNumber приводит номер НДС к каноническому виду: верхний регистр,
// без пробелов, точек и дефисов. Справочник клиентов сопоставляется по этому значению.
func NormalizeVATNumber(vat string) string {
	var b strings.Builder
	b.Grow(len(vat))
	for _, r := range vat {
		switch {
		case unicode.IsSpace(r), r == '.', r == '-', r == '/':
			continue
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// IsValidVATNumber проверяет форму номера НДС после нормализации.
// Пустой номер допустим: поле необязательное.
func IsValidVATNumber(vat string) bool {
	n := NormalizeVATNumber(vat)
	if n == "" {
		return true
	}
	if len(n) < minVATLen || len(n) > maxVATLen {
		return false
	}

	hasDigit := false
	for _, r := range n {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return hasDigit
}
