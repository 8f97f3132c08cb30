package validation

import "strings"

// DraftCodePrefix: префикс кода черновика.
const DraftCodePrefix = "DRAFT-"

// DraftCodeLength: число символов после префикса.
const DraftCodeLength = 8

// IsValidDraftCode проверяет код вида DRAFT-XXXXXXXX (A-Z, 0-9).
func IsValidDraftCode(code string) bool {
	rest, ok := strings.CutPrefix(code, DraftCodePrefix)
	if !ok || len(rest) != DraftCodeLength {
		return false
	}
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
