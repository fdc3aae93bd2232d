package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/ports"
)

// BillStore implements ports.BillStore with SQLite.
type BillStore struct {
	db *DB
}

// NewBillStore creates a new SQLite bill store.
func NewBillStore(db *DB) *BillStore {
	return &BillStore{db: db}
}

const billCols = `id, fleet_id, billing_date, upload_date, parsing_date,
	provider_number, internal_tax, iva_tax, other_tax, reported_total, reported_debt`

func scanBill(row interface{ Scan(...any) error }) (billing.Bill, error) {
	var (
		b       billing.Bill
		parsing sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.FleetID, &b.BillingDate, &b.UploadDate, &parsing,
		&b.ProviderNumber, &b.InternalTax, &b.IvaTax, &b.OtherTax,
		&b.ReportedTotal, &b.ReportedDebt,
	)
	if parsing.Valid {
		t := parsing.Time
		b.ParsingDate = &t
	}
	return b, err
}

// Get retrieves a bill by ID.
func (s *BillStore) Get(ctx context.Context, id string) (billing.Bill, error) {
	b, err := scanBill(s.db.DB.QueryRowContext(ctx,
		`SELECT `+billCols+` FROM bills WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Bill{}, ports.ErrNotFound
	}
	return b, err
}

// Create stores a new, unparsed bill.
func (s *BillStore) Create(ctx context.Context, b billing.Bill) error {
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO bills (`+billCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.FleetID, b.BillingDate, b.UploadDate, b.ParsingDate,
		b.ProviderNumber, b.InternalTax, b.IvaTax, b.OtherTax,
		b.ReportedTotal, b.ReportedDebt)
	return mapConstraint("bill", b.ID, err)
}

// Update modifies an existing bill.
func (s *BillStore) Update(ctx context.Context, b billing.Bill) error {
	res, err := s.db.DB.ExecContext(ctx, `
		UPDATE bills SET fleet_id = ?, billing_date = ?, upload_date = ?,
			parsing_date = ?, provider_number = ?, internal_tax = ?,
			iva_tax = ?, other_tax = ?, reported_total = ?, reported_debt = ?
		WHERE id = ?
	`, b.FleetID, b.BillingDate, b.UploadDate,
		b.ParsingDate, b.ProviderNumber, b.InternalTax,
		b.IvaTax, b.OtherTax, b.ReportedTotal, b.ReportedDebt, b.ID)
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

// List returns a fleet's bills, newest first.
func (s *BillStore) List(ctx context.Context, fleetID string) ([]billing.Bill, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+billCols+` FROM bills WHERE fleet_id = ? ORDER BY billing_date DESC`,
		fleetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []billing.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// MarkParsed atomically stores the ingested consumptions and the updated
// bill in one transaction. A duplicate (phone, bill) pair trips the UNIQUE
// constraint and rolls everything back.
func (s *BillStore) MarkParsed(ctx context.Context, b billing.Bill, cs []consumption.Consumption) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for _, c := range cs {
		if err := insertConsumption(ctx, tx, c); err != nil {
			tx.Rollback()
			return mapConstraint("consumption", c.PhoneID+"/"+c.BillID, err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE bills SET billing_date = ?, parsing_date = ?, provider_number = ?,
			internal_tax = ?, iva_tax = ?, other_tax = ?,
			reported_total = ?, reported_debt = ?
		WHERE id = ?
	`, b.BillingDate, b.ParsingDate, b.ProviderNumber,
		b.InternalTax, b.IvaTax, b.OtherTax,
		b.ReportedTotal, b.ReportedDebt, b.ID)
	if err != nil {
		tx.Rollback()
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if n == 0 {
		tx.Rollback()
		return ports.ErrNotFound
	}

	return tx.Commit()
}
