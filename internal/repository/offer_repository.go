package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type offerRepository struct {
	db *sqlx.DB
}

func NewOfferRepository(db *sqlx.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Upsert(ctx context.Context, offer *OfferRecord) error {
	query := `
		INSERT INTO offers (id, offer_id, lender, principal_asset, principal_amount, remaining_amount, collateral_assets, interest_rate_per_second, maturity_days, max_ltv_bps, status, offer_created_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (offer_id) DO UPDATE
		SET remaining_amount = EXCLUDED.remaining_amount, status = EXCLUDED.status, archived_at = EXCLUDED.archived_at
	`

	_, err := r.db.ExecContext(ctx, query,
		offer.ID,
		offer.OfferID,
		offer.Lender,
		offer.PrincipalAsset,
		offer.PrincipalAmount,
		offer.RemainingAmount,
		offer.CollateralAssets,
		offer.InterestRate,
		offer.MaturityDays,
		offer.MaxLtvBps,
		offer.Status,
		offer.OfferCreatedAt,
		offer.ArchivedAt,
	)

	return err
}

func (r *offerRepository) GetByOfferID(ctx context.Context, offerID uint64) (*OfferRecord, error) {
	query := `
		SELECT id, offer_id, lender, principal_asset, principal_amount, remaining_amount, collateral_assets, interest_rate_per_second, maturity_days, max_ltv_bps, status, offer_created_at, archived_at
		FROM offers
		WHERE offer_id = $1
	`

	var offer OfferRecord
	err := r.db.GetContext(ctx, &offer, query, offerID)
	if err != nil {
		return nil, err
	}

	return &offer, nil
}

func (r *offerRepository) ListByLender(ctx context.Context, lender string) ([]*OfferRecord, error) {
	query := `
		SELECT id, offer_id, lender, principal_asset, principal_amount, remaining_amount, collateral_assets, interest_rate_per_second, maturity_days, max_ltv_bps, status, offer_created_at, archived_at
		FROM offers
		WHERE lender = $1
		ORDER BY offer_id
	`

	var offers []*OfferRecord
	err := r.db.SelectContext(ctx, &offers, query, lender)
	if err != nil {
		return nil, err
	}

	return offers, nil
}
