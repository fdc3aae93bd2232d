package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/fleetbill/ports"
)

// PhoneStore implements ports.PhoneStore with SQLite.
type PhoneStore struct {
	db *DB
}

// NewPhoneStore creates a new SQLite phone store.
func NewPhoneStore(db *DB) *PhoneStore {
	return &PhoneStore{db: db}
}

const phoneCols = `id, number, user_name, email, leader, plan_name,
	active_since, active_to, notes`

func scanPhone(row interface{ Scan(...any) error }) (ports.Phone, error) {
	var (
		p        ports.Phone
		activeTo sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.Number, &p.UserName, &p.Email, &p.Leader, &p.PlanName,
		&p.ActiveSince, &activeTo, &p.Notes,
	)
	if activeTo.Valid {
		t := activeTo.Time
		p.ActiveTo = &t
	}
	return p, err
}

// Get retrieves a phone by ID.
func (s *PhoneStore) Get(ctx context.Context, id string) (ports.Phone, error) {
	p, err := scanPhone(s.db.DB.QueryRowContext(ctx,
		`SELECT `+phoneCols+` FROM phones WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Phone{}, ports.ErrNotFound
	}
	return p, err
}

// GetByNumber retrieves a phone by line number.
func (s *PhoneStore) GetByNumber(ctx context.Context, number string) (ports.Phone, error) {
	p, err := scanPhone(s.db.DB.QueryRowContext(ctx,
		`SELECT `+phoneCols+` FROM phones WHERE number = ?`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Phone{}, ports.ErrNotFound
	}
	return p, err
}

// List returns all phones ordered by number.
func (s *PhoneStore) List(ctx context.Context) ([]ports.Phone, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+phoneCols+` FROM phones ORDER BY number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phones []ports.Phone
	for rows.Next() {
		p, err := scanPhone(rows)
		if err != nil {
			return nil, err
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

// Create stores a new phone.
func (s *PhoneStore) Create(ctx context.Context, p ports.Phone) error {
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO phones (`+phoneCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Number, p.UserName, p.Email, p.Leader, p.PlanName,
		p.ActiveSince, p.ActiveTo, p.Notes)
	return mapConstraint("phone", p.Number, err)
}

// Update modifies an existing phone.
func (s *PhoneStore) Update(ctx context.Context, p ports.Phone) error {
	res, err := s.db.DB.ExecContext(ctx, `
		UPDATE phones SET number = ?, user_name = ?, email = ?, leader = ?,
			plan_name = ?, active_since = ?, active_to = ?, notes = ?
		WHERE id = ?
	`, p.Number, p.UserName, p.Email, p.Leader,
		p.PlanName, p.ActiveSince, p.ActiveTo, p.Notes, p.ID)
	if err != nil {
		return mapConstraint("phone", p.Number, err)
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
