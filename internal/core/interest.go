package core

import "math/big"

// FullInterestAmount computes the total owed on a principal after
// elapsedSeconds at the given per-second rate:
//
//	totalOwed = principal + principal * ratePerSecond * elapsedSeconds / 1e18
//
// Simple, non-compounding interest over integer arithmetic with truncation
// toward zero. Any deviation here desynchronizes the mirror from on-chain
// settlement, so the formula must not be "improved": no rounding, no
// floating point, no compounding. Negative elapsed time (clock skew) clamps
// to zero, making the zero-elapsed result exactly the principal.
func FullInterestAmount(principal *big.Int, elapsedSeconds int64, ratePerSecond *big.Int) *big.Int {
	if principal == nil || principal.Sign() <= 0 {
		return big.NewInt(0)
	}
	total := new(big.Int).Set(principal)
	if elapsedSeconds <= 0 || ratePerSecond == nil || ratePerSecond.Sign() <= 0 {
		return total
	}
	interest := new(big.Int).Mul(principal, ratePerSecond)
	interest.Mul(interest, big.NewInt(elapsedSeconds))
	interest.Quo(interest, rateDenominator)
	return total.Add(total, interest)
}
