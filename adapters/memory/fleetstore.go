package memory

import (
	"context"
	"sort"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/ports"
)

// FleetStore is an in-memory implementation of ports.FleetStore.
type FleetStore struct {
	st *state
}

// Get retrieves a fleet by ID.
func (s *FleetStore) Get(ctx context.Context, id string) (billing.Fleet, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	f, ok := s.st.fleets[id]
	if !ok {
		return billing.Fleet{}, ports.ErrNotFound
	}
	return f, nil
}

// Create stores a new fleet.
func (s *FleetStore) Create(ctx context.Context, f billing.Fleet) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.fleets[f.ID]; exists {
		return &billing.IntegrityError{Entity: "fleet", Key: f.ID}
	}
	s.st.fleets[f.ID] = f
	return nil
}

// List returns all fleets sorted by ID.
func (s *FleetStore) List(ctx context.Context) ([]billing.Fleet, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := make([]billing.Fleet, 0, len(s.st.fleets))
	for _, f := range s.st.fleets {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
