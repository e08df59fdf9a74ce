package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableID(t *testing.T) {
	assert.Equal(t, "T-01", TableID(1))
	assert.Equal(t, "T-12", TableID(12))
}

func TestTableNumber(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "Canonical", raw: "T-03", expected: 3},
		{name: "Lower case without padding", raw: "t-3", expected: 3},
		{name: "No dash", raw: "T10", expected: 10},
		{name: "Bare number", raw: "7", expected: 7},
		{name: "Padded bare number", raw: "07", expected: 7},
		{name: "Surrounding spaces", raw: "  T-05 ", expected: 5},
		{name: "Zero", raw: "T-00", expectErr: true},
		{name: "Too many digits", raw: "T-123", expectErr: true},
		{name: "Garbage", raw: "table five", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := TableNumber(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, n)
		})
	}
}

func TestTableNumberRoundTrip(t *testing.T) {
	for n := 1; n <= 99; n++ {
		got, err := TableNumber(TableID(n))
		assert.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
