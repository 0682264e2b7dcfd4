package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

func TestParseCurrency(t *testing.T) {
	unit, err := ParseCurrency("EUR")
	require.NoError(t, err)
	assert.Equal(t, currency.EUR, unit)

	_, err = ParseCurrency("EURO")
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	out := FormatAmount(2000, currency.EUR, language.French)
	assert.Contains(t, out, "20")
	assert.Contains(t, out, "€")
}
