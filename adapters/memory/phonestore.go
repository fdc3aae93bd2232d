package memory

import (
	"context"
	"sort"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/ports"
)

// PhoneStore is an in-memory implementation of ports.PhoneStore.
type PhoneStore struct {
	st *state
}

// Get retrieves a phone by ID.
func (s *PhoneStore) Get(ctx context.Context, id string) (ports.Phone, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	p, ok := s.st.phones[id]
	if !ok {
		return ports.Phone{}, ports.ErrNotFound
	}
	return p, nil
}

// GetByNumber retrieves a phone by line number.
func (s *PhoneStore) GetByNumber(ctx context.Context, number string) (ports.Phone, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	for _, p := range s.st.phones {
		if p.Number == number {
			return p, nil
		}
	}
	return ports.Phone{}, ports.ErrNotFound
}

// List returns all phones sorted by number.
func (s *PhoneStore) List(ctx context.Context) ([]ports.Phone, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := make([]ports.Phone, 0, len(s.st.phones))
	for _, p := range s.st.phones {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Create stores a new phone.
func (s *PhoneStore) Create(ctx context.Context, p ports.Phone) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.phones[p.ID]; exists {
		return &billing.IntegrityError{Entity: "phone", Key: p.ID}
	}
	for _, other := range s.st.phones {
		if other.Number == p.Number {
			return &billing.IntegrityError{Entity: "phone", Key: p.Number}
		}
	}
	s.st.phones[p.ID] = p
	return nil
}

// Update modifies an existing phone.
func (s *PhoneStore) Update(ctx context.Context, p ports.Phone) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.phones[p.ID]; !exists {
		return ports.ErrNotFound
	}
	s.st.phones[p.ID] = p
	return nil
}
