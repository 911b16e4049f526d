package ltv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshprotocol/lending-engine/internal/domain"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

type stubScores map[domain.AccountID]uint64

func (s stubScores) GetScore(account domain.AccountID) uint64 { return s[account] }

func TestComputeMaxLtvBps_Unconfigured(t *testing.T) {
	engine := NewEngine(stubScores{})

	_, err := engine.ComputeMaxLtvBps("0xabc")

	assert.ErrorIs(t, err, customError.ErrLtvNotConfigured)
}

func TestSetConfig_RejectsInvalid(t *testing.T) {
	engine := NewEngine(stubScores{})

	assert.Error(t, engine.SetConfig(Config{LowScoreThreshold: 120, HighScoreThreshold: 100, LowLtvBps: 2_000, HighLtvBps: 8_000}))
	assert.Error(t, engine.SetConfig(Config{LowScoreThreshold: 100, HighScoreThreshold: 120, LowLtvBps: 0, HighLtvBps: 8_000}))
	assert.Error(t, engine.SetConfig(Config{LowScoreThreshold: 100, HighScoreThreshold: 120, LowLtvBps: 2_000, HighLtvBps: 10_001}))
}

func TestComputeMaxLtvBps_ClampsAndInterpolates(t *testing.T) {
	scores := stubScores{}
	engine := NewEngine(scores)
	require.NoError(t, engine.SetConfig(Config{
		LowScoreThreshold:  100,
		HighScoreThreshold: 120,
		LowLtvBps:          2_000,
		HighLtvBps:         8_000,
	}))

	cases := []struct {
		score uint64
		want  uint64
	}{
		{0, 2_000},
		{100, 2_000},
		{110, 5_000},
		{115, 6_500},
		{120, 8_000},
		{500, 8_000},
	}
	for _, tc := range cases {
		scores["0xabc"] = tc.score
		got, err := engine.ComputeMaxLtvBps("0xabc")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "score %d", tc.score)
	}
}

func TestComputeMaxLtvBps_WideThresholdSpan(t *testing.T) {
	// Threshold spans near the top of the uint64 range stay exact; the
	// midpoint lands at the midpoint of the LTV bounds.
	scores := stubScores{"0xabc": 1 << 61}
	engine := NewEngine(scores)
	require.NoError(t, engine.SetConfig(Config{
		LowScoreThreshold:  0,
		HighScoreThreshold: 1 << 62,
		LowLtvBps:          2_000,
		HighLtvBps:         8_000,
	}))

	got, err := engine.ComputeMaxLtvBps("0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000), got)
}

func TestComputeMaxLtvBps_MonotonicInScore(t *testing.T) {
	scores := stubScores{}
	engine := NewEngine(scores)
	require.NoError(t, engine.SetConfig(Config{
		LowScoreThreshold:  100,
		HighScoreThreshold: 137,
		LowLtvBps:          1_500,
		HighLtvBps:         9_000,
	}))

	var prev uint64
	for score := uint64(0); score <= 200; score++ {
		scores["0xabc"] = score
		got, err := engine.ComputeMaxLtvBps("0xabc")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, uint64(1_500))
		assert.LessOrEqual(t, got, uint64(9_000))
		prev = got
	}
}
