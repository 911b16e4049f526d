package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repaymentRepository struct {
	db *sqlx.DB
}

func NewRepaymentRepository(db *sqlx.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) Create(ctx context.Context, repayment *RepaymentRecord) error {
	query := `
		INSERT INTO repayments (id, loan_id, payer, percentage_bps, amount_paid, released_collateral, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		repayment.ID,
		repayment.LoanID,
		repayment.Payer,
		repayment.PercentageBps,
		repayment.AmountPaid,
		repayment.Released,
		repayment.PaidAt,
	)

	return err
}

func (r *repaymentRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]*RepaymentRecord, error) {
	query := `
		SELECT id, loan_id, payer, percentage_bps, amount_paid, released_collateral, paid_at
		FROM repayments
		WHERE loan_id = $1
		ORDER BY paid_at
	`

	var repayments []*RepaymentRecord
	err := r.db.SelectContext(ctx, &repayments, query, loanID)
	if err != nil {
		return nil, err
	}

	return repayments, nil
}
