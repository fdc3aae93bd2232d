package memory

import (
	"context"
	"sort"

	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/ports"
)

// PenaltyStore is an in-memory implementation of ports.PenaltyStore.
type PenaltyStore struct {
	st *state
}

// Get retrieves the penalty for a (bill, plan) pair.
func (s *PenaltyStore) Get(ctx context.Context, billID, planName string) (penalty.Penalty, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	p, ok := s.st.penalties[pairKey(billID, planName)]
	if !ok {
		return penalty.Penalty{}, ports.ErrNotFound
	}
	return p, nil
}

// ListByBill returns all penalties for a bill, sorted by plan name.
func (s *PenaltyStore) ListByBill(ctx context.Context, billID string) ([]penalty.Penalty, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	var out []penalty.Penalty
	for _, p := range s.st.penalties {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanName < out[j].PlanName })
	return out, nil
}

// Replace atomically discards any prior penalty for (billID, planName),
// persists the updated consumptions and stores pen when non-nil.
func (s *PenaltyStore) Replace(ctx context.Context, billID, planName string, pen *penalty.Penalty, cs []consumption.Consumption) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, c := range cs {
		if _, exists := s.st.consumptions[c.ID]; !exists {
			return ports.ErrNotFound
		}
	}

	delete(s.st.penalties, pairKey(billID, planName))
	for _, c := range cs {
		s.st.consumptions[c.ID] = c
	}
	if pen != nil {
		s.st.penalties[pairKey(billID, planName)] = *pen
	}
	return nil
}
