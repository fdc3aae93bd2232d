package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/ports"
)

// ConsumptionStore implements ports.ConsumptionStore with SQLite.
type ConsumptionStore struct {
	db *DB
}

// NewConsumptionStore creates a new SQLite consumption store.
func NewConsumptionStore(db *DB) *ConsumptionStore {
	return &ConsumptionStore{db: db}
}

const consumptionCols = `id, phone_id, bill_id, plan_name,
	reported_user, reported_plan, monthly_price, services, refunds,
	included_min, exceeded_min, exceeded_min_price,
	ndl_min, ndl_min_price, idl_min, idl_min_price,
	sms, sms_price, equipment_price, other_price, reported_total,
	penalty_min, penalty_sms, extra,
	mins, total_before_taxes, taxes, total_before_round, total, payed`

func scanConsumption(row interface{ Scan(...any) error }) (consumption.Consumption, error) {
	var c consumption.Consumption
	err := row.Scan(
		&c.ID, &c.PhoneID, &c.BillID, &c.PlanName,
		&c.ReportedUser, &c.ReportedPlan, &c.MonthlyPrice, &c.Services, &c.Refunds,
		&c.IncludedMin, &c.ExceededMin, &c.ExceededMinPrice,
		&c.NDLMin, &c.NDLMinPrice, &c.IDLMin, &c.IDLMinPrice,
		&c.SMS, &c.SMSPrice, &c.EquipmentPrice, &c.OtherPrice, &c.ReportedTotal,
		&c.PenaltyMin, &c.PenaltySMS, &c.Extra,
		&c.Mins, &c.TotalBeforeTaxes, &c.Taxes, &c.TotalBeforeRound, &c.Total,
		&c.Payed,
	)
	return c, err
}

func insertConsumption(ctx context.Context, tx *sql.Tx, c consumption.Consumption) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO consumptions (`+consumptionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.PhoneID, c.BillID, c.PlanName,
		c.ReportedUser, c.ReportedPlan, c.MonthlyPrice, c.Services, c.Refunds,
		c.IncludedMin, c.ExceededMin, c.ExceededMinPrice,
		c.NDLMin, c.NDLMinPrice, c.IDLMin, c.IDLMinPrice,
		c.SMS, c.SMSPrice, c.EquipmentPrice, c.OtherPrice, c.ReportedTotal,
		c.PenaltyMin, c.PenaltySMS, c.Extra,
		c.Mins, c.TotalBeforeTaxes, c.Taxes, c.TotalBeforeRound, c.Total,
		c.Payed)
	return err
}

// updateConsumption rewrites a consumption's mutable fields: the penalty
// inputs, the manual adjustment, the derived totals and the payment flag.
// The raw invoice line never changes after ingestion.
func updateConsumption(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, c consumption.Consumption) error {
	res, err := q.ExecContext(ctx, `
		UPDATE consumptions SET plan_name = ?, penalty_min = ?, penalty_sms = ?,
			extra = ?, mins = ?, total_before_taxes = ?, taxes = ?,
			total_before_round = ?, total = ?, payed = ?
		WHERE id = ?
	`, c.PlanName, c.PenaltyMin, c.PenaltySMS,
		c.Extra, c.Mins, c.TotalBeforeTaxes, c.Taxes,
		c.TotalBeforeRound, c.Total, c.Payed, c.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Get retrieves a consumption by ID.
func (s *ConsumptionStore) Get(ctx context.Context, id string) (consumption.Consumption, error) {
	c, err := scanConsumption(s.db.DB.QueryRowContext(ctx,
		`SELECT `+consumptionCols+` FROM consumptions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return consumption.Consumption{}, ports.ErrNotFound
	}
	return c, err
}

// ListByBill returns all consumptions for a bill, ordered by phone ID.
func (s *ConsumptionStore) ListByBill(ctx context.Context, billID string) ([]consumption.Consumption, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+consumptionCols+` FROM consumptions WHERE bill_id = ? ORDER BY phone_id ASC`,
		billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cs []consumption.Consumption
	for rows.Next() {
		c, err := scanConsumption(rows)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

// LatestForPhone returns the phone's most recent consumption from a bill
// billed strictly before the given date.
func (s *ConsumptionStore) LatestForPhone(ctx context.Context, phoneID string, before time.Time) (consumption.Consumption, error) {
	c, err := scanConsumption(s.db.DB.QueryRowContext(ctx, `
		SELECT `+qualifiedConsumptionCols+`
		FROM consumptions c
		JOIN bills b ON b.id = c.bill_id
		WHERE c.phone_id = ? AND b.billing_date < ?
		ORDER BY b.billing_date DESC
		LIMIT 1
	`, phoneID, before))
	if errors.Is(err, sql.ErrNoRows) {
		return consumption.Consumption{}, ports.ErrNotFound
	}
	return c, err
}

const qualifiedConsumptionCols = `c.id, c.phone_id, c.bill_id, c.plan_name,
	c.reported_user, c.reported_plan, c.monthly_price, c.services, c.refunds,
	c.included_min, c.exceeded_min, c.exceeded_min_price,
	c.ndl_min, c.ndl_min_price, c.idl_min, c.idl_min_price,
	c.sms, c.sms_price, c.equipment_price, c.other_price, c.reported_total,
	c.penalty_min, c.penalty_sms, c.extra,
	c.mins, c.total_before_taxes, c.taxes, c.total_before_round, c.total, c.payed`

// Update modifies an existing consumption.
func (s *ConsumptionStore) Update(ctx context.Context, c consumption.Consumption) error {
	return updateConsumption(ctx, s.db.DB, c)
}
