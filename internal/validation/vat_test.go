package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVATNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"de 123 456 789", "DE123456789"},
		{"BE0.123.456-789", "BE0123456789"},
		{"  gb/999 9999 73 ", "GB999999973"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeVATNumber(tt.in))
		})
	}
}

func TestIsValidVATNumber(t *testing.T) {
	tests := []struct {
		name  string
		vat   string
		valid bool
	}{
		{name: "empty is allowed", vat: "", valid: true},
		{name: "eu prefixed", vat: "DE123456789", valid: true},
		{name: "with separators", vat: "nl 8192.14.034 B01", valid: true},
		{name: "digits only", vat: "12345678", valid: true},
		{name: "too short", vat: "DE1", valid: false},
		{name: "too long", vat: "DE12345678901234567", valid: false},
		{name: "no digits", vat: "ABCDEFG", valid: false},
		{name: "bad symbol", vat: "DE12#456", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidVATNumber(tt.vat))
		})
	}
}

func TestIsValidDraftCode(t *testing.T) {
	assert.True(t, IsValidDraftCode("DRAFT-AB12CD34"))
	assert.False(t, IsValidDraftCode("DRAFT-ab12cd34"))
	assert.False(t, IsValidDraftCode("DRAFT-AB12CD3"))
	assert.False(t, IsValidDraftCode("OFFER-AB12CD34"))
	assert.False(t, IsValidDraftCode(""))
}

func TestNew_RegistersDomainTags(t *testing.T) {
	v := New()

	type req struct {
		VAT  string `validate:"vatnumber"`
		Code string `validate:"omitempty,draftcode"`
	}

	require.NoError(t, v.Struct(req{VAT: "DE123456789", Code: "DRAFT-0000ZZZZ"}))
	require.NoError(t, v.Struct(req{}))
	assert.Error(t, v.Struct(req{VAT: "??"}))
	assert.Error(t, v.Struct(req{Code: "DRAFT-1"}))
}
