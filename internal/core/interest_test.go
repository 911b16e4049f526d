package core

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullInterestAmount_ZeroElapsed(t *testing.T) {
	principal := big.NewInt(1_000_000)
	rate := big.NewInt(385_802_400_000)

	owed := FullInterestAmount(principal, 0, rate)

	assert.True(t, owed.Cmp(principal) == 0, "no interest accrues at zero elapsed time")
}

func TestFullInterestAmount_ClockSkewClamps(t *testing.T) {
	principal := big.NewInt(1_000_000)
	rate := big.NewInt(385_802_400_000)

	owed := FullInterestAmount(principal, -3600, rate)

	assert.True(t, owed.Cmp(principal) == 0)
}

func TestFullInterestAmount_Formula(t *testing.T) {
	// 1e18 units at 385802400000/1e18 per second for 30 days.
	principal, ok := new(big.Int).SetString("1000000000000000000", 10)
	require.True(t, ok)
	rate := big.NewInt(385_802_400_000)
	elapsed := int64(30 * 86_400)

	owed := FullInterestAmount(principal, elapsed, rate)

	// principal * rate * elapsed / 1e18 = 385802400000 * 2592000
	expectedInterest := new(big.Int).Mul(rate, big.NewInt(elapsed))
	expected := new(big.Int).Add(principal, expectedInterest)
	assert.Equal(t, expected.String(), owed.String())
}

func TestFullInterestAmount_TruncatesTowardZero(t *testing.T) {
	// 3 * 1 * 1 / 1e18 truncates to 0: tiny positions accrue nothing until
	// the product crosses the denominator.
	owed := FullInterestAmount(big.NewInt(3), 1, big.NewInt(1))
	assert.Equal(t, "3", owed.String())
}

func TestFullInterestAmount_MonotonicInElapsed(t *testing.T) {
	principal := big.NewInt(7_500_000_000)
	rate := big.NewInt(385_802_400_000)

	prev := FullInterestAmount(principal, 0, rate)
	for _, elapsed := range []int64{1, 60, 3_600, 86_400, 30 * 86_400, 365 * 86_400} {
		owed := FullInterestAmount(principal, elapsed, rate)
		assert.True(t, owed.Cmp(prev) >= 0, "owed must not decrease as time passes")
		prev = owed
	}
}
