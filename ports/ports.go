// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/domain/plan"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Notifier delivers a rendered report to a recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// -----------------------------------------------------------------------------
// Parsed invoice input (produced by the out-of-scope invoice parser)
// -----------------------------------------------------------------------------

// ParsedLine is one phone line's worth of extracted invoice fields.
type ParsedLine struct {
	PhoneNumber string `json:"phone_number"`
	consumption.Line
}

// ParsedInvoice is the structured record set extracted from one carrier
// invoice. BillingDate uses the 2006-01-02 layout; tax fields, when present,
// override the bill's configured components.
type ParsedInvoice struct {
	BillingDate    string       `json:"billing_date"`
	ProviderNumber string       `json:"provider_number"`
	Total          money.Money  `json:"total"`
	Debt           money.Money  `json:"debt"`
	InternalTax    *money.Tax   `json:"internal_tax,omitempty"`
	IvaTax         *money.Tax   `json:"iva_tax,omitempty"`
	OtherTax       *money.Tax   `json:"other_tax,omitempty"`
	Lines          []ParsedLine `json:"lines"`
}

// -----------------------------------------------------------------------------
// Reference Data Ports
// -----------------------------------------------------------------------------

// Phone represents a phone line and the person responsible for it.
type Phone struct {
	ID          string
	Number      string
	UserName    string
	Email       string
	Leader      string // grouping key for report summaries
	PlanName    string // current plan; consumptions keep their own
	ActiveSince time.Time
	ActiveTo    *time.Time
	Notes       string
}

// Active reports whether the line is active at t.
func (p Phone) Active(t time.Time) bool {
	return p.ActiveTo == nil || p.ActiveTo.After(t)
}

// PlanStore persists the plan registry.
type PlanStore interface {
	// Get retrieves a plan by name.
	Get(ctx context.Context, name string) (plan.Plan, error)

	// List returns all plans.
	List(ctx context.Context) ([]plan.Plan, error)

	// Upsert creates or replaces a plan.
	Upsert(ctx context.Context, p plan.Plan) error

	// Delete removes a plan.
	Delete(ctx context.Context, name string) error
}

// PhoneStore persists phone lines.
type PhoneStore interface {
	// Get retrieves a phone by ID.
	Get(ctx context.Context, id string) (Phone, error)

	// GetByNumber retrieves a phone by line number.
	GetByNumber(ctx context.Context, number string) (Phone, error)

	// List returns all phones.
	List(ctx context.Context) ([]Phone, error)

	// Create stores a new phone.
	Create(ctx context.Context, p Phone) error

	// Update modifies an existing phone.
	Update(ctx context.Context, p Phone) error
}

// FleetStore persists fleets.
type FleetStore interface {
	// Get retrieves a fleet by ID.
	Get(ctx context.Context, id string) (billing.Fleet, error)

	// Create stores a new fleet.
	Create(ctx context.Context, f billing.Fleet) error

	// List returns all fleets.
	List(ctx context.Context) ([]billing.Fleet, error)
}

// -----------------------------------------------------------------------------
// Settlement Data Ports
// -----------------------------------------------------------------------------

// BillStore persists bills.
type BillStore interface {
	// Get retrieves a bill by ID.
	Get(ctx context.Context, id string) (billing.Bill, error)

	// Create stores a new, unparsed bill.
	Create(ctx context.Context, b billing.Bill) error

	// Update modifies an existing bill.
	Update(ctx context.Context, b billing.Bill) error

	// List returns a fleet's bills, newest first.
	List(ctx context.Context, fleetID string) ([]billing.Bill, error)

	// MarkParsed atomically stores the ingested consumptions and the
	// updated bill. Duplicate (phone, bill) pairs fail with an
	// IntegrityError and nothing is written.
	MarkParsed(ctx context.Context, b billing.Bill, cs []consumption.Consumption) error
}

// ConsumptionStore persists consumptions.
type ConsumptionStore interface {
	// Get retrieves a consumption by ID.
	Get(ctx context.Context, id string) (consumption.Consumption, error)

	// ListByBill returns all consumptions for a bill, ordered by phone.
	ListByBill(ctx context.Context, billID string) ([]consumption.Consumption, error)

	// LatestForPhone returns the phone's most recent consumption from a
	// bill billed strictly before the given date.
	LatestForPhone(ctx context.Context, phoneID string, before time.Time) (consumption.Consumption, error)

	// Update modifies an existing consumption.
	Update(ctx context.Context, c consumption.Consumption) error
}

// PenaltyStore persists penalties.
type PenaltyStore interface {
	// Get retrieves the penalty for a (bill, plan) pair.
	Get(ctx context.Context, billID, planName string) (penalty.Penalty, error)

	// ListByBill returns all penalties for a bill.
	ListByBill(ctx context.Context, billID string) ([]penalty.Penalty, error)

	// Replace atomically discards any prior penalty for (billID, planName),
	// persists the updated consumptions, and stores pen when it is non-nil.
	// Either every write lands or none do.
	Replace(ctx context.Context, billID, planName string, pen *penalty.Penalty, cs []consumption.Consumption) error
}
