package memory

import (
	"context"
	"sort"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/ports"
)

// BillStore is an in-memory implementation of ports.BillStore.
type BillStore struct {
	st *state
}

// Get retrieves a bill by ID.
func (s *BillStore) Get(ctx context.Context, id string) (billing.Bill, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	b, ok := s.st.bills[id]
	if !ok {
		return billing.Bill{}, ports.ErrNotFound
	}
	return b, nil
}

// Create stores a new, unparsed bill.
func (s *BillStore) Create(ctx context.Context, b billing.Bill) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.bills[b.ID]; exists {
		return &billing.IntegrityError{Entity: "bill", Key: b.ID}
	}
	s.st.bills[b.ID] = b
	return nil
}

// Update modifies an existing bill.
func (s *BillStore) Update(ctx context.Context, b billing.Bill) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.bills[b.ID]; !exists {
		return ports.ErrNotFound
	}
	s.st.bills[b.ID] = b
	return nil
}

// List returns a fleet's bills, newest first.
func (s *BillStore) List(ctx context.Context, fleetID string) ([]billing.Bill, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var out []billing.Bill
	for _, b := range s.st.bills {
		if b.FleetID == fleetID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillingDate.After(out[j].BillingDate) })
	return out, nil
}

// MarkParsed atomically stores the ingested consumptions and the updated
// bill. Nothing is written if any (phone, bill) pair already exists.
func (s *BillStore) MarkParsed(ctx context.Context, b billing.Bill, cs []consumption.Consumption) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.bills[b.ID]; !exists {
		return ports.ErrNotFound
	}

	seen := make(map[string]bool, len(cs))
	for _, c := range cs {
		key := pairKey(c.PhoneID, c.BillID)
		if _, exists := s.st.byPhoneBill[key]; exists || seen[key] {
			return &billing.IntegrityError{Entity: "consumption", Key: key}
		}
		seen[key] = true
	}

	for _, c := range cs {
		s.st.consumptions[c.ID] = c
		s.st.byPhoneBill[pairKey(c.PhoneID, c.BillID)] = c.ID
	}
	s.st.bills[b.ID] = b
	return nil
}
