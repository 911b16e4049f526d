package core

import (
	"math/big"
	"time"

	"github.com/darshprotocol/lending-engine/internal/domain"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

// OfferBook is the arena holding every offer ever posted: a growable table
// with a monotonically incrementing id counter. Ids start at 1 and are never
// reused; iteration order equals insertion order. The book carries no lock
// of its own, the owning Pool serializes all access.
type OfferBook struct {
	order  []*domain.Offer
	byID   map[uint64]*domain.Offer
	nextID uint64
}

func NewOfferBook() *OfferBook {
	return &OfferBook{
		byID:   make(map[uint64]*domain.Offer),
		nextID: 1,
	}
}

func (b *OfferBook) create(lender domain.AccountID, principalAsset domain.Asset, amount *big.Int, collateralAssets []domain.Asset, maturityDays uint64, ratePerSecond *big.Int, maxLtvBps uint64, createdAt time.Time) *domain.Offer {
	offer := &domain.Offer{
		ID:                       b.nextID,
		Lender:                   lender,
		PrincipalAsset:           principalAsset,
		PrincipalAmount:          new(big.Int).Set(amount),
		AcceptedCollateralAssets: append([]domain.Asset(nil), collateralAssets...),
		InterestRatePerSecond:    new(big.Int).Set(ratePerSecond),
		MaturityDays:             maturityDays,
		MaxLtvBps:                maxLtvBps,
		RemainingAmount:          new(big.Int).Set(amount),
		Status:                   domain.OfferStatusOpen,
		CreatedAt:                createdAt,
	}
	b.nextID++
	b.order = append(b.order, offer)
	b.byID[offer.ID] = offer
	return offer
}

func (b *OfferBook) get(offerID uint64) (*domain.Offer, error) {
	offer, ok := b.byID[offerID]
	if !ok {
		return nil, customError.WrapOfferNotFound(offerID)
	}
	return offer, nil
}

// checkFill validates a fill without mutating. Callers use it to front-load
// every failure before any escrow pull so a rejected fill leaves no state
// change behind.
func (b *OfferBook) checkFill(offerID uint64, requested *big.Int, collateralAsset domain.Asset) (*domain.Offer, error) {
	offer, err := b.get(offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.Fillable() {
		return nil, customError.WrapOfferNotOpen(offerID, string(offer.Status))
	}
	if requested.Cmp(offer.RemainingAmount) > 0 {
		return nil, customError.WrapInsufficientCapacity(offerID, requested.String(), offer.RemainingAmount.String())
	}
	if !offer.AcceptsCollateral(collateralAsset) {
		return nil, customError.WrapCollateralNotAccepted(offerID, collateralAsset.String())
	}
	return offer, nil
}

// applyFill commits a previously validated fill: remaining capacity drops by
// amount and the status advances to PartiallyFilled or Filled.
func (b *OfferBook) applyFill(offer *domain.Offer, amount *big.Int) {
	offer.RemainingAmount.Sub(offer.RemainingAmount, amount)
	if offer.RemainingAmount.Sign() == 0 {
		offer.Status = domain.OfferStatusFilled
	} else {
		offer.Status = domain.OfferStatusPartiallyFilled
	}
}

// expire marks an aged-out open offer Expired and returns the refund amount.
func (b *OfferBook) expire(offer *domain.Offer) *big.Int {
	refund := new(big.Int).Set(offer.RemainingAmount)
	offer.RemainingAmount.SetInt64(0)
	offer.Status = domain.OfferStatusExpired
	return refund
}

// list returns clones of all offers in insertion order.
func (b *OfferBook) list() []*domain.Offer {
	out := make([]*domain.Offer, 0, len(b.order))
	for _, offer := range b.order {
		out = append(out, offer.Clone())
	}
	return out
}
