package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/ports"
)

// PenaltyStore implements ports.PenaltyStore with SQLite.
type PenaltyStore struct {
	db *DB
}

// NewPenaltyStore creates a new SQLite penalty store.
func NewPenaltyStore(db *DB) *PenaltyStore {
	return &PenaltyStore{db: db}
}

// Get retrieves the penalty for a (bill, plan) pair.
func (s *PenaltyStore) Get(ctx context.Context, billID, planName string) (penalty.Penalty, error) {
	var p penalty.Penalty
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT bill_id, plan_name, minutes, sms
		FROM penalties WHERE bill_id = ? AND plan_name = ?
	`, billID, planName).Scan(&p.BillID, &p.PlanName, &p.Minutes, &p.SMS)
	if errors.Is(err, sql.ErrNoRows) {
		return penalty.Penalty{}, ports.ErrNotFound
	}
	return p, err
}

// ListByBill returns all penalties for a bill, ordered by plan name.
func (s *PenaltyStore) ListByBill(ctx context.Context, billID string) ([]penalty.Penalty, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT bill_id, plan_name, minutes, sms
		FROM penalties WHERE bill_id = ? ORDER BY plan_name ASC
	`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []penalty.Penalty
	for rows.Next() {
		var p penalty.Penalty
		if err := rows.Scan(&p.BillID, &p.PlanName, &p.Minutes, &p.SMS); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

// Replace atomically discards any prior penalty for (billID, planName),
// persists the updated consumptions and stores pen when non-nil, all in one
// transaction.
func (s *PenaltyStore) Replace(ctx context.Context, billID, planName string, pen *penalty.Penalty, cs []consumption.Consumption) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM penalties WHERE bill_id = ? AND plan_name = ?",
		billID, planName); err != nil {
		tx.Rollback()
		return err
	}

	for _, c := range cs {
		if err := updateConsumption(ctx, tx, c); err != nil {
			tx.Rollback()
			return err
		}
	}

	if pen != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO penalties (bill_id, plan_name, minutes, sms)
			VALUES (?, ?, ?, ?)
		`, pen.BillID, pen.PlanName, pen.Minutes, pen.SMS); err != nil {
			tx.Rollback()
			return mapConstraint("penalty", billID+"/"+planName, err)
		}
	}

	return tx.Commit()
}
