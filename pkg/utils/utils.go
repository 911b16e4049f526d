package utils

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const SecondsPerDay = 86_400

// ParseAmount parses a base-10 smallest-unit amount. Negative and malformed
// values are rejected.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	return v, nil
}

// AmountToDecimal renders a smallest-unit amount with the given number of
// decimals for display and archival.
func AmountToDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// DecimalFromBig converts a big integer to a decimal with no scaling.
func DecimalFromBig(amount *big.Int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, 0)
}

// DaysToSeconds converts a day count to seconds.
func DaysToSeconds(days uint64) int64 {
	return int64(days) * SecondsPerDay
}

// MaturityDeadline returns the unix second after which a loan created at
// createdAt with the given maturity is in default.
func MaturityDeadline(createdAt time.Time, maturityDays uint64) int64 {
	return createdAt.Unix() + DaysToSeconds(maturityDays)
}
