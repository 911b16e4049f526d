package domain

import (
	"math/big"
	"time"
)

type OfferStatus string

const (
	OfferStatusOpen            OfferStatus = "open"
	OfferStatusPartiallyFilled OfferStatus = "partially_filled"
	OfferStatusFilled          OfferStatus = "filled"
	OfferStatusCancelled       OfferStatus = "cancelled"
	OfferStatusExpired         OfferStatus = "expired"
)

// Fillable reports whether an offer in this status accepts further draws.
func (s OfferStatus) Fillable() bool {
	return s == OfferStatusOpen || s == OfferStatusPartiallyFilled
}

// Terminal reports whether the status admits no further transitions.
func (s OfferStatus) Terminal() bool {
	return s == OfferStatusFilled || s == OfferStatusCancelled || s == OfferStatusExpired
}

// Offer is a lender's standing commitment of escrowed principal available
// for borrowing under the stated terms.
//
// Invariants: RemainingAmount only decreases except on cancellation (set to
// zero); Status is Filled exactly when RemainingAmount is zero.
type Offer struct {
	ID                       uint64
	Lender                   AccountID
	PrincipalAsset           Asset
	PrincipalAmount          *big.Int
	AcceptedCollateralAssets []Asset
	InterestRatePerSecond    *big.Int
	MaturityDays             uint64
	MaxLtvBps                uint64
	RemainingAmount          *big.Int
	Status                   OfferStatus
	CreatedAt                time.Time
}

// AcceptsCollateral reports whether the asset is in the offer's accepted set.
func (o *Offer) AcceptsCollateral(asset Asset) bool {
	for _, a := range o.AcceptedCollateralAssets {
		if a == asset {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias the canonical record.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	clone.PrincipalAmount = new(big.Int).Set(o.PrincipalAmount)
	clone.RemainingAmount = new(big.Int).Set(o.RemainingAmount)
	clone.InterestRatePerSecond = new(big.Int).Set(o.InterestRatePerSecond)
	clone.AcceptedCollateralAssets = append([]Asset(nil), o.AcceptedCollateralAssets...)
	return &clone
}
