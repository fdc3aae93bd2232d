// Package memory provides in-memory implementations of the storage ports,
// used by tests and dry runs. The per-entity stores share one state guarded
// by a single lock, which is also what gives MarkParsed and Replace their
// atomicity.
package memory

import (
	"sync"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/domain/plan"
	"github.com/artpar/fleetbill/ports"
)

// state is the shared backing storage.
type state struct {
	mu           sync.RWMutex
	plans        map[string]plan.Plan
	phones       map[string]ports.Phone
	fleets       map[string]billing.Fleet
	bills        map[string]billing.Bill
	consumptions map[string]consumption.Consumption
	byPhoneBill  map[string]string // phoneID+"/"+billID -> consumption ID
	penalties    map[string]penalty.Penalty
}

// Store bundles in-memory implementations of every storage port over one
// shared state.
type Store struct {
	Plans        *PlanStore
	Phones       *PhoneStore
	Fleets       *FleetStore
	Bills        *BillStore
	Consumptions *ConsumptionStore
	Penalties    *PenaltyStore
}

// New creates an empty in-memory store.
func New() *Store {
	st := &state{
		plans:        make(map[string]plan.Plan),
		phones:       make(map[string]ports.Phone),
		fleets:       make(map[string]billing.Fleet),
		bills:        make(map[string]billing.Bill),
		consumptions: make(map[string]consumption.Consumption),
		byPhoneBill:  make(map[string]string),
		penalties:    make(map[string]penalty.Penalty),
	}
	return &Store{
		Plans:        &PlanStore{st: st},
		Phones:       &PhoneStore{st: st},
		Fleets:       &FleetStore{st: st},
		Bills:        &BillStore{st: st},
		Consumptions: &ConsumptionStore{st: st},
		Penalties:    &PenaltyStore{st: st},
	}
}

func pairKey(a, b string) string { return a + "/" + b }

// Ensure interface compliance.
var (
	_ ports.PlanStore        = (*PlanStore)(nil)
	_ ports.PhoneStore       = (*PhoneStore)(nil)
	_ ports.FleetStore       = (*FleetStore)(nil)
	_ ports.BillStore        = (*BillStore)(nil)
	_ ports.ConsumptionStore = (*ConsumptionStore)(nil)
	_ ports.PenaltyStore     = (*PenaltyStore)(nil)
)
