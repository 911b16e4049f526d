package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, event *ActivityRecord) error {
	query := `
		INSERT INTO activity_events (id, account, kind, amount_usd, loan_closed, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Account,
		event.Kind,
		event.AmountUsd,
		event.LoanClosed,
		event.OccurredAt,
	)

	return err
}

func (r *activityRepository) ListByAccount(ctx context.Context, account string) ([]*ActivityRecord, error) {
	query := `
		SELECT id, account, kind, amount_usd, loan_closed, occurred_at
		FROM activity_events
		WHERE account = $1
		ORDER BY occurred_at
	`

	var events []*ActivityRecord
	err := r.db.SelectContext(ctx, &events, query, account)
	if err != nil {
		return nil, err
	}

	return events, nil
}
