package core

import "math/big"

var (
	basisPoints = big.NewInt(10_000)

	// rateDenominator is the fixed denominator of per-second interest
	// rates: a rate numerator of 1e18 is 100% per second.
	rateDenominator = mustBigInt("1000000000000000000")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv computes a*b/den truncating toward zero.
func mulDiv(a, b, den *big.Int) *big.Int {
	if a == nil || b == nil || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

// ceilDiv computes a/b rounding up. Collateral requirements round against
// the borrower so a truncated result can never under-collateralize.
func ceilDiv(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Add(a, new(big.Int).Sub(b, big.NewInt(1)))
	return out.Quo(out, b)
}

// bpsShare computes amount*bps/10000 truncating toward zero.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	return mulDiv(amount, new(big.Int).SetUint64(bps), basisPoints)
}
