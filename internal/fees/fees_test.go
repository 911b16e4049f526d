package fees

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darshprotocol/lending-engine/internal/domain"
)

const dai = domain.Asset("0xdai")

func TestTakeFee_FlatBpsTruncates(t *testing.T) {
	mgr := NewManager(250) // 2.5%

	net, fee := mgr.TakeFee(big.NewInt(10_001), dai)

	// 10_001 * 250 / 10_000 = 250.025, truncated.
	assert.Equal(t, "250", fee.String())
	assert.Equal(t, "9751", net.String())
	assert.Equal(t, "250", mgr.Accrued(dai).String())
}

func TestTakeFee_ZeroBpsPassesThrough(t *testing.T) {
	mgr := NewManager(0)

	net, fee := mgr.TakeFee(big.NewInt(500), dai)

	assert.Equal(t, "500", net.String())
	assert.Equal(t, "0", fee.String())
	assert.Equal(t, "0", mgr.Accrued(dai).String())
}

func TestTakeFee_AccruesPerAsset(t *testing.T) {
	mgr := NewManager(100)
	usdc := domain.Asset("0xusdc")

	mgr.TakeFee(big.NewInt(10_000), dai)
	mgr.TakeFee(big.NewInt(20_000), dai)
	mgr.TakeFee(big.NewInt(30_000), usdc)

	assert.Equal(t, "300", mgr.Accrued(dai).String())
	assert.Equal(t, "300", mgr.Accrued(usdc).String())
}

func TestTakeFee_NetPlusFeeConserved(t *testing.T) {
	mgr := NewManager(777)

	amount := big.NewInt(123_457)
	net, fee := mgr.TakeFee(amount, dai)

	assert.Equal(t, amount.String(), new(big.Int).Add(net, fee).String())
}
