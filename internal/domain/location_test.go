package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLocationCode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expected  LocationCode
		expectErr bool
	}{
		{name: "canonical", raw: "I009", expected: "I009"},
		{name: "lower case", raw: "i009", expected: "I009"},
		{name: "dash separator", raw: "I-009", expected: "I009"},
		{name: "mixed separators", raw: " a_1.2 ", expected: "A12"},
		{name: "slash", raw: "AB/7", expected: "AB7"},
		{name: "single digit", raw: "C1", expected: "C1"},
		{name: "too many digits", raw: "I0009", expectErr: true},
		{name: "digits only", raw: "009", expectErr: true},
		{name: "letters only", raw: "IX", expectErr: true},
		{name: "letter after digits", raw: "I09A", expectErr: true},
		{name: "empty", raw: "", expectErr: true},
		{name: "non ascii", raw: "창고1", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := ParseLocationCode(tt.raw)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrMalformedLocationCode)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestLocationCode_Section(t *testing.T) {
	assert.Equal(t, "I", LocationCode("I009").Section())
	assert.Equal(t, "AB", LocationCode("AB12").Section())
}
