package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Upsert(ctx context.Context, loan *LoanRecord) error {
	query := `
		INSERT INTO loans (id, loan_id, offer_id, lender, borrower, principal_asset, principal_amount, collateral_asset, collateral_amount, interest_rate_per_second, maturity_days, status, loan_created_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (loan_id) DO UPDATE
		SET principal_amount = EXCLUDED.principal_amount, collateral_amount = EXCLUDED.collateral_amount, status = EXCLUDED.status, loan_created_at = EXCLUDED.loan_created_at, archived_at = EXCLUDED.archived_at
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.OfferID,
		loan.Lender,
		loan.Borrower,
		loan.PrincipalAsset,
		loan.PrincipalAmount,
		loan.CollateralAsset,
		loan.CollateralAmount,
		loan.InterestRate,
		loan.MaturityDays,
		loan.Status,
		loan.LoanCreatedAt,
		loan.ArchivedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID uint64) (*LoanRecord, error) {
	query := `
		SELECT id, loan_id, offer_id, lender, borrower, principal_asset, principal_amount, collateral_asset, collateral_amount, interest_rate_per_second, maturity_days, status, loan_created_at, archived_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan LoanRecord
	err := r.db.GetContext(ctx, &loan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListByBorrower(ctx context.Context, borrower string) ([]*LoanRecord, error) {
	query := `
		SELECT id, loan_id, offer_id, lender, borrower, principal_asset, principal_amount, collateral_asset, collateral_amount, interest_rate_per_second, maturity_days, status, loan_created_at, archived_at
		FROM loans
		WHERE borrower = $1
		ORDER BY loan_id
	`

	var loans []*LoanRecord
	err := r.db.SelectContext(ctx, &loans, query, borrower)
	if err != nil {
		return nil, err
	}

	return loans, nil
}
