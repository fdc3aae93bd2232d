package memory

import (
	"context"
	"sort"

	"github.com/artpar/fleetbill/domain/plan"
	"github.com/artpar/fleetbill/ports"
)

// PlanStore is an in-memory implementation of ports.PlanStore.
type PlanStore struct {
	st *state
}

// Get retrieves a plan by name.
func (s *PlanStore) Get(ctx context.Context, name string) (plan.Plan, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	p, ok := s.st.plans[name]
	if !ok {
		return plan.Plan{}, ports.ErrNotFound
	}
	return p, nil
}

// List returns all plans sorted by name.
func (s *PlanStore) List(ctx context.Context) ([]plan.Plan, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := make([]plan.Plan, 0, len(s.st.plans))
	for _, p := range s.st.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert creates or replaces a plan.
func (s *PlanStore) Upsert(ctx context.Context, p plan.Plan) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.plans[p.Name] = p
	return nil
}

// Delete removes a plan.
func (s *PlanStore) Delete(ctx context.Context, name string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	delete(s.st.plans, name)
	return nil
}
