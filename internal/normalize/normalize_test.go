package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"English", "en"},
		{"ENGLISH", "en"},
		{"en-US", "en"},
		{"es_MX", "es"},
		{"ger", "de"},
		{"deu", "de"},
		{"Castilian", "es"},
		{"spanish", "es"},
		{"  fr  ", "fr"},
		{"", ""},
		{"klingon", ""},
		{"xx", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LanguageCode(tt.in), tt.in)
	}
}

func TestLanguageCodeStripsNulls(t *testing.T) {
	assert.Equal(t, "en", LanguageCode("en\x00"))
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "English", Language("eng"))
	assert.Equal(t, "German", Language("german"))
	assert.Equal(t, "Spanish", Language("es-419"))
	assert.Empty(t, Language("unknown tongue"))
}
