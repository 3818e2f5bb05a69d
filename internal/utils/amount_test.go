package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

func TestTruncateToPrecision(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact multiple unchanged", "5000000000000", "5000000000000"},
		{"sub-precision digits zeroed", "1234567890123456789", "1234567000000000000"},
		{"below one unit truncates to zero", "999999999999", "0"},
		{"zero stays zero", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := new(big.Int).SetString(tt.in, 10)
			require.True(t, ok)
			got := TruncateToPrecision(in, precision)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTruncateIsIdempotent(t *testing.T) {
	in, _ := new(big.Int).SetString("987654321987654321987", 10)
	once := TruncateToPrecision(in, precision)
	twice := TruncateToPrecision(once, precision)
	assert.Zero(t, once.Cmp(twice))
}

func TestRoundUpToPrecision(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact multiple unchanged", "5000000000000", "5000000000000"},
		{"remainder rounds up", "1234567000000000001", "1234568000000000000"},
		{"below one unit rounds to one unit", "1", "1000000000000"},
		{"zero stays zero", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := new(big.Int).SetString(tt.in, 10)
			require.True(t, ok)
			got := RoundUpToPrecision(in, precision)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestRoundUpNeverBelowInput(t *testing.T) {
	inputs := []string{"1", "999999999999", "1000000000000", "1000000000001", "123456789012345678901"}
	for _, s := range inputs {
		in, _ := new(big.Int).SetString(s, 10)
		up := RoundUpToPrecision(in, precision)
		assert.True(t, up.Cmp(in) >= 0, "roundUp(%s) = %s < input", in, up)

		// rounding up a truncated amount must still cover the original
		down := TruncateToPrecision(in, precision)
		assert.True(t, RoundUpToPrecision(down, precision).Cmp(down) >= 0)
	}
}

func TestFormatAtto(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"100", "0.0000000000000001"},
		{"-2500000000000000000", "-2.5"},
		{"123456000000000000000", "123.456"},
	}
	for _, tt := range tests {
		in, ok := new(big.Int).SetString(tt.in, 10)
		require.True(t, ok)
		assert.Equal(t, tt.want, FormatAtto(in))
	}
}
