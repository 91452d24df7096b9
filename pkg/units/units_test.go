package units

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHuman(t *testing.T) {
	tests := []struct {
		base     string
		decimals int32
		want     string
	}{
		{"1500000", 6, "1.5"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"1000000000000000000", 18, "1"},
		{"123", 0, "123"},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935", 18,
			"115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
	}

	for _, tt := range tests {
		got, err := ToHuman(tt.base, tt.decimals)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ToHuman(%s, %d)", tt.base, tt.decimals)
	}
}

func TestToBaseRejectsInvalid(t *testing.T) {
	_, err := ToBase("1.0000001", 6)
	assert.Error(t, err)

	_, err = ToBase("-1", 6)
	assert.Error(t, err)

	_, err = ToBase("abc", 6)
	assert.Error(t, err)

	_, err = ToBase("", 6)
	assert.Error(t, err)
}

func TestToBase(t *testing.T) {
	got, err := ToBase("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", got)

	got, err = ToBase("0.010000", 6)
	require.NoError(t, err)
	assert.Equal(t, "10000", got)
}

func TestRoundTrip(t *testing.T) {
	fixed := []string{"0", "1", "10", "999999", "1000000000000000000", "340282366920938463463374607431768211455"}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		fixed = append(fixed, strconv.FormatUint(rng.Uint64(), 10))
	}

	for _, base := range fixed {
		for _, decimals := range []int32{0, 1, 6, 8, 9, 18, 24} {
			human, err := ToHuman(base, decimals)
			require.NoError(t, err)
			back, err := ToBase(human, decimals)
			require.NoError(t, err)
			assert.Equal(t, base, back, "round trip of %s with %d decimals via %s", base, decimals, human)
		}
	}
}

func TestValidBase(t *testing.T) {
	assert.True(t, ValidBase("0"))
	assert.True(t, ValidBase("12345"))
	assert.False(t, ValidBase(""))
	assert.False(t, ValidBase("007"))
	assert.False(t, ValidBase("-1"))
	assert.False(t, ValidBase("1.5"))
}
