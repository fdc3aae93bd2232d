package memory

import (
	"context"
	"sort"
	"time"

	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/ports"
)

// ConsumptionStore is an in-memory implementation of ports.ConsumptionStore.
type ConsumptionStore struct {
	st *state
}

// Get retrieves a consumption by ID.
func (s *ConsumptionStore) Get(ctx context.Context, id string) (consumption.Consumption, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	c, ok := s.st.consumptions[id]
	if !ok {
		return consumption.Consumption{}, ports.ErrNotFound
	}
	return c, nil
}

// ListByBill returns all consumptions for a bill, ordered by phone ID.
func (s *ConsumptionStore) ListByBill(ctx context.Context, billID string) ([]consumption.Consumption, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var out []consumption.Consumption
	for _, c := range s.st.consumptions {
		if c.BillID == billID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneID < out[j].PhoneID })
	return out, nil
}

// LatestForPhone returns the phone's most recent consumption from a bill
// billed strictly before the given date.
func (s *ConsumptionStore) LatestForPhone(ctx context.Context, phoneID string, before time.Time) (consumption.Consumption, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var (
		best     consumption.Consumption
		bestDate time.Time
		found    bool
	)
	for _, c := range s.st.consumptions {
		if c.PhoneID != phoneID {
			continue
		}
		b, ok := s.st.bills[c.BillID]
		if !ok || !b.BillingDate.Before(before) {
			continue
		}
		if !found || b.BillingDate.After(bestDate) {
			best, bestDate, found = c, b.BillingDate, true
		}
	}
	if !found {
		return consumption.Consumption{}, ports.ErrNotFound
	}
	return best, nil
}

// Update modifies an existing consumption.
func (s *ConsumptionStore) Update(ctx context.Context, c consumption.Consumption) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, exists := s.st.consumptions[c.ID]; !exists {
		return ports.ErrNotFound
	}
	s.st.consumptions[c.ID] = c
	return nil
}
