// Package app contains the settlement services orchestrating ingestion,
// penalty recalculation and reporting over the storage ports.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/fleetbill/adapters/metrics"
	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/domain/plan"
	"github.com/artpar/fleetbill/ports"
)

// billingDateLayout is the wire format of ParsedInvoice.BillingDate.
const billingDateLayout = "2006-01-02"

// SettlementService drives a bill through its lifecycle: ingest the parsed
// invoice, recalculate penalties, adjust individual consumptions.
type SettlementService struct {
	plans        ports.PlanStore
	phones       ports.PhoneStore
	bills        ports.BillStore
	consumptions ports.ConsumptionStore
	penalties    ports.PenaltyStore
	clock        ports.Clock
	ids          ports.IDGenerator
	metrics      *metrics.Collector
	logger       zerolog.Logger

	// billLocks serializes settlement of one bill; distinct bills run
	// independently.
	mu        sync.Mutex
	billLocks map[string]*sync.Mutex
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(
	plans ports.PlanStore,
	phones ports.PhoneStore,
	bills ports.BillStore,
	consumptions ports.ConsumptionStore,
	penalties ports.PenaltyStore,
	clock ports.Clock,
	ids ports.IDGenerator,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *SettlementService {
	return &SettlementService{
		plans:        plans,
		phones:       phones,
		bills:        bills,
		consumptions: consumptions,
		penalties:    penalties,
		clock:        clock,
		ids:          ids,
		metrics:      collector,
		logger:       logger,
		billLocks:    make(map[string]*sync.Mutex),
	}
}

func (s *SettlementService) lockBill(billID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.billLocks[billID]
	if !ok {
		m = &sync.Mutex{}
		s.billLocks[billID] = m
	}
	return m
}

// IngestInvoice turns a parsed invoice into one consumption per line and
// marks the bill parsed. All-or-nothing: every line is validated and computed
// before anything is persisted. Re-ingesting a parsed bill fails.
func (s *SettlementService) IngestInvoice(ctx context.Context, billID string, inv ports.ParsedInvoice) error {
	lock := s.lockBill(billID)
	lock.Lock()
	defer lock.Unlock()

	start := s.clock.Now()

	err := s.ingestInvoice(ctx, billID, inv, start)
	if err != nil {
		s.metrics.IngestErrors.WithLabelValues(errorReason(err)).Inc()
		s.logger.Error().Err(err).Str("bill_id", billID).Msg("ingestion failed")
		return err
	}

	s.metrics.BillsIngested.Inc()
	s.metrics.LinesIngested.Add(float64(len(inv.Lines)))
	s.metrics.SettlementDuration.WithLabelValues("ingest").
		Observe(s.clock.Now().Sub(start).Seconds())
	s.logger.Info().
		Str("bill_id", billID).
		Int("lines", len(inv.Lines)).
		Msg("invoice ingested")
	return nil
}

func (s *SettlementService) ingestInvoice(ctx context.Context, billID string, inv ports.ParsedInvoice, now time.Time) error {
	bill, err := s.bills.Get(ctx, billID)
	if err != nil {
		return fmt.Errorf("get bill %s: %w", billID, err)
	}
	if bill.Parsed() {
		return billing.Parsef("bill %s already parsed on %s", billID, bill.ParsingDate.Format(billingDateLayout))
	}

	billingDate, err := time.Parse(billingDateLayout, inv.BillingDate)
	if err != nil {
		return &billing.ParseError{Reason: fmt.Sprintf("billing date %q", inv.BillingDate), Err: err}
	}

	bill.BillingDate = billingDate
	bill.ProviderNumber = inv.ProviderNumber
	bill.ReportedTotal = inv.Total
	bill.ReportedDebt = inv.Debt
	if inv.InternalTax != nil {
		bill.InternalTax = *inv.InternalTax
	}
	if inv.IvaTax != nil {
		bill.IvaTax = *inv.IvaTax
	}
	if inv.OtherTax != nil {
		bill.OtherTax = *inv.OtherTax
	}
	taxes := bill.Taxes()

	// Validate and compute every line before persisting anything.
	cs := make([]consumption.Consumption, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		phone, err := s.phones.GetByNumber(ctx, line.PhoneNumber)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return billing.Parsef("unknown phone %s", line.PhoneNumber)
			}
			return fmt.Errorf("resolve phone %s: %w", line.PhoneNumber, err)
		}

		p, err := s.resolvePlan(ctx, phone, line, billingDate)
		if err != nil {
			return err
		}

		c := consumption.Consumption{
			ID:       s.ids.New(),
			PhoneID:  phone.ID,
			BillID:   billID,
			PlanName: p.Name,
			Line:     line.Line,
		}
		c.Totals = consumption.Compute(c.Line, p, taxes, c.PenaltyMin, c.PenaltySMS, c.Extra)
		cs = append(cs, c)
	}

	parsed := now
	bill.ParsingDate = &parsed

	if err := s.bills.MarkParsed(ctx, bill, cs); err != nil {
		return fmt.Errorf("persist parsed bill %s: %w", billID, err)
	}
	return nil
}

// resolvePlan maps an invoice line to its plan: the reported plan code wins;
// an empty code falls back to the phone's most recent prior consumption.
func (s *SettlementService) resolvePlan(ctx context.Context, phone ports.Phone, line ports.ParsedLine, billingDate time.Time) (plan.Plan, error) {
	name := line.ReportedPlan
	if name == "" {
		prior, err := s.consumptions.LatestForPhone(ctx, phone.ID, billingDate)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return plan.Plan{}, billing.Parsef("phone %s: no plan reported and no prior consumption", phone.Number)
			}
			return plan.Plan{}, fmt.Errorf("prior consumption for %s: %w", phone.Number, err)
		}
		name = prior.PlanName
	}

	p, err := s.plans.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return plan.Plan{}, billing.Parsef("phone %s: unknown plan %q", phone.Number, name)
		}
		return plan.Plan{}, fmt.Errorf("get plan %s: %w", name, err)
	}
	return p, nil
}

// CalculatePenalties recomputes every plan-wide penalty for a parsed bill.
// Safe to repeat: each run replaces the previous penalty state, never
// accumulates. Concurrent calls for the same bill serialize.
func (s *SettlementService) CalculatePenalties(ctx context.Context, billID string) error {
	lock := s.lockBill(billID)
	lock.Lock()
	defer lock.Unlock()

	start := s.clock.Now()

	bill, err := s.bills.Get(ctx, billID)
	if err != nil {
		return fmt.Errorf("get bill %s: %w", billID, err)
	}
	if !bill.Parsed() {
		s.metrics.PenaltyRecalcs.WithLabelValues("error").Inc()
		return &billing.AdjustmentError{Reason: fmt.Sprintf("bill %s has no parsed invoice", billID)}
	}

	cs, err := s.consumptions.ListByBill(ctx, billID)
	if err != nil {
		return fmt.Errorf("list consumptions for %s: %w", billID, err)
	}

	taxes := bill.Taxes()
	for _, planName := range planNames(cs) {
		if err := s.settlePlan(ctx, billID, planName, taxes, cs); err != nil {
			s.metrics.PenaltyRecalcs.WithLabelValues("error").Inc()
			s.logger.Error().Err(err).
				Str("bill_id", billID).
				Str("plan", planName).
				Msg("penalty recalculation failed")
			return err
		}
	}

	s.metrics.PenaltyRecalcs.WithLabelValues("ok").Inc()
	s.metrics.SettlementDuration.WithLabelValues("penalties").
		Observe(s.clock.Now().Sub(start).Seconds())
	s.logger.Info().Str("bill_id", billID).Msg("penalties recalculated")
	return nil
}

// settlePlan rebuilds one plan's penalty state for the bill: zero the penalty
// fields, recompute shortfalls, distribute, recompute totals and persist the
// whole plan group atomically.
func (s *SettlementService) settlePlan(ctx context.Context, billID, planName string, taxes money.Tax, all []consumption.Consumption) error {
	p, err := s.plans.Get(ctx, planName)
	if err != nil {
		return fmt.Errorf("get plan %s: %w", planName, err)
	}

	var group []*consumption.Consumption
	for i := range all {
		if all[i].PlanName == planName {
			group = append(group, &all[i])
		}
	}

	for _, c := range group {
		c.PenaltyMin = money.Minutes{}
		c.PenaltySMS = 0
		c.Recompute(p, taxes)
	}

	pen := penalty.Penalty{BillID: billID, PlanName: planName}
	if p.WithMinClearing {
		pen.Minutes = penalty.MinuteShortfall(p, deref(group))
		if err := penalty.DistributeMinutes(p, group, pen.Minutes); err != nil {
			return err
		}
	}
	if p.WithSMSClearing {
		pen.SMS = penalty.SMSShortfall(p, deref(group))
		if err := penalty.DistributeSMS(p, group, pen.SMS); err != nil {
			return err
		}
	}

	for _, c := range group {
		c.Recompute(p, taxes)
	}

	var stored *penalty.Penalty
	if pen.HasShortfall() {
		stored = &pen
	}
	if err := s.penalties.Replace(ctx, billID, planName, stored, deref(group)); err != nil {
		return fmt.Errorf("replace penalty %s/%s: %w", billID, planName, err)
	}

	if stored != nil {
		mins, _ := pen.Minutes.Decimal().Float64()
		s.metrics.MinutesDistributed.Add(mins)
		s.metrics.SMSDistributed.Add(float64(pen.SMS))
	}
	return nil
}

// SetExtra records a manual adjustment on one consumption and recomputes its
// totals. The bill must be parsed.
func (s *SettlementService) SetExtra(ctx context.Context, consumptionID string, extra money.Money) error {
	c, err := s.consumptions.Get(ctx, consumptionID)
	if err != nil {
		return fmt.Errorf("get consumption %s: %w", consumptionID, err)
	}

	lock := s.lockBill(c.BillID)
	lock.Lock()
	defer lock.Unlock()

	bill, err := s.bills.Get(ctx, c.BillID)
	if err != nil {
		return fmt.Errorf("get bill %s: %w", c.BillID, err)
	}
	if !bill.Parsed() {
		return &billing.AdjustmentError{Reason: fmt.Sprintf("bill %s has no parsed invoice", c.BillID)}
	}

	p, err := s.plans.Get(ctx, c.PlanName)
	if err != nil {
		return fmt.Errorf("get plan %s: %w", c.PlanName, err)
	}

	c.Extra = extra
	c.Recompute(p, bill.Taxes())
	if err := s.consumptions.Update(ctx, c); err != nil {
		return fmt.Errorf("update consumption %s: %w", consumptionID, err)
	}

	s.logger.Info().
		Str("consumption_id", consumptionID).
		Str("extra", extra.String()).
		Msg("extra adjustment applied")
	return nil
}

// SetPayed flips a consumption's payment bookkeeping flag.
func (s *SettlementService) SetPayed(ctx context.Context, consumptionID string, payed bool) error {
	c, err := s.consumptions.Get(ctx, consumptionID)
	if err != nil {
		return fmt.Errorf("get consumption %s: %w", consumptionID, err)
	}
	c.Payed = payed
	if err := s.consumptions.Update(ctx, c); err != nil {
		return fmt.Errorf("update consumption %s: %w", consumptionID, err)
	}
	return nil
}

// planNames returns the distinct plan names in first-seen order.
func planNames(cs []consumption.Consumption) []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range cs {
		if !seen[c.PlanName] {
			seen[c.PlanName] = true
			names = append(names, c.PlanName)
		}
	}
	return names
}

func deref(group []*consumption.Consumption) []consumption.Consumption {
	out := make([]consumption.Consumption, len(group))
	for i, c := range group {
		out[i] = *c
	}
	return out
}

// errorReason buckets an ingestion error for metrics labels.
func errorReason(err error) string {
	var pe *billing.ParseError
	var ie *billing.IntegrityError
	switch {
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &ie):
		return "integrity"
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
