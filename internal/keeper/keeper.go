package keeper

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/darshprotocol/lending-engine/internal/domain"
	"github.com/darshprotocol/lending-engine/internal/service"
)

// KeeperAccount is the liquidator identity recorded on sweep-driven
// liquidations.
const KeeperAccount = "keeper"

// Sweeper drives the lazy lifecycle transitions: loans past maturity are
// liquidated, open offers past their window are expired. Each candidate is
// processed independently so one failure never stalls the sweep.
type Sweeper struct {
	service *service.LendingService
	logger  *logrus.Logger
}

func NewSweeper(svc *service.LendingService, logger *logrus.Logger) *Sweeper {
	return &Sweeper{service: svc, logger: logger}
}

// Sweep runs one pass and returns the number of liquidated loans and
// expired offers.
func (s *Sweeper) Sweep(ctx context.Context) (liquidated, expired int) {
	pool := s.service.Pool()

	for _, loanID := range pool.MaturedActiveLoans() {
		_, err := s.service.LiquidateLoan(ctx, loanID, &domain.LiquidateLoanRequest{Liquidator: KeeperAccount})
		if err != nil {
			s.logger.WithError(err).WithField("loan_id", loanID).Warn("sweep liquidation failed")
			continue
		}
		liquidated++
	}

	for _, offerID := range pool.AgedOpenOffers() {
		_, err := s.service.ExpireOffer(ctx, offerID)
		if err != nil {
			s.logger.WithError(err).WithField("offer_id", offerID).Warn("sweep expiry failed")
			continue
		}
		expired++
	}

	if liquidated > 0 || expired > 0 {
		s.logger.WithFields(logrus.Fields{
			"liquidated": liquidated,
			"expired":    expired,
		}).Info("keeper sweep completed")
	}
	return liquidated, expired
}
