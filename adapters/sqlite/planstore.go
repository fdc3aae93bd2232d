package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/fleetbill/domain/plan"
	"github.com/artpar/fleetbill/ports"
)

// PlanStore implements ports.PlanStore with SQLite.
type PlanStore struct {
	db *DB
}

// NewPlanStore creates a new SQLite plan store.
func NewPlanStore(db *DB) *PlanStore {
	return &PlanStore{db: db}
}

const planCols = `name, monthly_price, price_per_min, price_per_sms,
	included_min, included_sms, with_min_clearing, with_sms_clearing, description`

func scanPlan(row interface{ Scan(...any) error }) (plan.Plan, error) {
	var p plan.Plan
	err := row.Scan(
		&p.Name, &p.MonthlyPrice, &p.PricePerMin, &p.PricePerSMS,
		&p.IncludedMin, &p.IncludedSMS, &p.WithMinClearing, &p.WithSMSClearing,
		&p.Description,
	)
	return p, err
}

// Get retrieves a plan by name.
func (s *PlanStore) Get(ctx context.Context, name string) (plan.Plan, error) {
	p, err := scanPlan(s.db.DB.QueryRowContext(ctx,
		`SELECT `+planCols+` FROM plans WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Plan{}, ports.ErrNotFound
	}
	return p, err
}

// List returns all plans ordered by name.
func (s *PlanStore) List(ctx context.Context) ([]plan.Plan, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+planCols+` FROM plans ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Upsert creates or replaces a plan.
func (s *PlanStore) Upsert(ctx context.Context, p plan.Plan) error {
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO plans (`+planCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			monthly_price = excluded.monthly_price,
			price_per_min = excluded.price_per_min,
			price_per_sms = excluded.price_per_sms,
			included_min = excluded.included_min,
			included_sms = excluded.included_sms,
			with_min_clearing = excluded.with_min_clearing,
			with_sms_clearing = excluded.with_sms_clearing,
			description = excluded.description
	`, p.Name, p.MonthlyPrice, p.PricePerMin, p.PricePerSMS,
		p.IncludedMin, p.IncludedSMS, p.WithMinClearing, p.WithSMSClearing,
		p.Description)
	return err
}

// Delete removes a plan.
func (s *PlanStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.DB.ExecContext(ctx, "DELETE FROM plans WHERE name = ?", name)
	return err
}
