package offer

import (
	"crypto/rand"
	"math/big"

	"github.com/danielkolev/offersrv-sub002/internal/validation"
)

const draftCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewDraftCode генерирует код черновика вида DRAFT-XXXXXXXX.
func NewDraftCode() string {
	buf := make([]byte, 0, len(validation.DraftCodePrefix)+validation.DraftCodeLength)
	buf = append(buf, validation.DraftCodePrefix...)

	limit := big.NewInt(int64(len(draftCodeAlphabet)))
	for i := 0; i < validation.DraftCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand не возвращает ошибок на поддерживаемых платформах.
			panic(err)
		}
		buf = append(buf, draftCodeAlphabet[n.Int64()])
	}
	return string(buf)
}
