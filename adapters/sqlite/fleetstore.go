package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/ports"
)

// FleetStore implements ports.FleetStore with SQLite.
type FleetStore struct {
	db *DB
}

// NewFleetStore creates a new SQLite fleet store.
func NewFleetStore(db *DB) *FleetStore {
	return &FleetStore{db: db}
}

// Get retrieves a fleet by ID.
func (s *FleetStore) Get(ctx context.Context, id string) (billing.Fleet, error) {
	var f billing.Fleet
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT id, provider, account_number, email FROM fleets WHERE id = ?
	`, id).Scan(&f.ID, &f.Provider, &f.AccountNumber, &f.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Fleet{}, ports.ErrNotFound
	}
	return f, err
}

// Create stores a new fleet.
func (s *FleetStore) Create(ctx context.Context, f billing.Fleet) error {
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO fleets (id, provider, account_number, email)
		VALUES (?, ?, ?, ?)
	`, f.ID, f.Provider, f.AccountNumber, f.Email)
	return mapConstraint("fleet", f.ID, err)
}

// List returns all fleets ordered by ID.
func (s *FleetStore) List(ctx context.Context) ([]billing.Fleet, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT id, provider, account_number, email FROM fleets ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fleets []billing.Fleet
	for rows.Next() {
		var f billing.Fleet
		if err := rows.Scan(&f.ID, &f.Provider, &f.AccountNumber, &f.Email); err != nil {
			return nil, err
		}
		fleets = append(fleets, f)
	}
	return fleets, rows.Err()
}
