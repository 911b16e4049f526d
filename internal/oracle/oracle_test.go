package oracle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshprotocol/lending-engine/internal/domain"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

func TestFeedTable_SetAndPrice(t *testing.T) {
	table := NewFeedTable()
	table.Set("0xdai", big.NewInt(99_000_000))

	price, err := table.Price("0xdai")

	require.NoError(t, err)
	assert.Equal(t, "99000000", price.String())
	assert.True(t, table.HasPriceFeed("0xdai"))
}

func TestFeedTable_MissingFeed(t *testing.T) {
	table := NewFeedTable()

	_, err := table.Price("0xunknown")

	assert.ErrorIs(t, err, customError.ErrPriceFeedMissing)
	assert.False(t, table.HasPriceFeed("0xunknown"))
}

func TestFeedTable_SetReplaces(t *testing.T) {
	table := NewFeedTable()
	table.Set("0xdai", big.NewInt(100_000_000))
	table.Set("0xdai", big.NewInt(101_000_000))

	price, err := table.Price("0xdai")

	require.NoError(t, err)
	assert.Equal(t, "101000000", price.String())
}

func TestFeedTable_ReturnsCopy(t *testing.T) {
	table := NewFeedTable()
	table.Set("0xdai", big.NewInt(100_000_000))

	price, err := table.Price("0xdai")
	require.NoError(t, err)
	price.SetInt64(1)

	again, err := table.Price("0xdai")
	require.NoError(t, err)
	assert.Equal(t, "100000000", again.String())
}

func TestUsdReference_OneDollar(t *testing.T) {
	assert.Equal(t, PriceScale.String(), UsdReference().String())
	assert.Equal(t, domain.Asset("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"), domain.NativeAsset)
}
