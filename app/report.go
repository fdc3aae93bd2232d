package app

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/fleetbill/adapters/metrics"
	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/ports"
)

// LineSummary is one consumption flattened for reporting.
type LineSummary struct {
	PhoneNumber string        `json:"phone_number"`
	UserName    string        `json:"user_name"`
	PlanName    string        `json:"plan_name"`
	Mins        money.Minutes `json:"mins"`
	PenaltyMin  money.Minutes `json:"penalty_min"`
	PenaltySMS  int64         `json:"penalty_sms"`
	Extra       money.Money   `json:"extra"`
	Total       money.Money   `json:"total"`
	Payed       bool          `json:"payed"`
}

// LeaderGroup is the set of lines answering to one leader, with their total.
type LeaderGroup struct {
	Leader string        `json:"leader"`
	Email  string        `json:"email"`
	Lines  []LineSummary `json:"lines"`
	Total  money.Money   `json:"total"`
}

// Summary is the aggregate read view of a settled bill. Outcome is the
// computed grand total minus what the carrier reported (total plus debt):
// positive means the fleet collects more than it owes.
type Summary struct {
	BillID        string            `json:"bill_id"`
	BillingDate   time.Time         `json:"billing_date"`
	Taxes         money.Tax         `json:"taxes"`
	Groups        []LeaderGroup     `json:"groups"`
	GrandTotal    money.Money       `json:"grand_total"`
	ReportedTotal money.Money       `json:"reported_total"`
	ReportedDebt  money.Money       `json:"reported_debt"`
	Outcome       money.Money       `json:"outcome"`
	Penalties     []penalty.Penalty `json:"penalties"`
}

// ReportOptions configures report delivery.
type ReportOptions struct {
	SubjectPrefix string
	DryRun        bool
}

// ReportService builds aggregate views of settled bills and delivers
// per-leader summaries through the Notifier.
type ReportService struct {
	bills        ports.BillStore
	phones       ports.PhoneStore
	consumptions ports.ConsumptionStore
	penalties    ports.PenaltyStore
	notifier     ports.Notifier
	opts         ReportOptions
	metrics      *metrics.Collector
	logger       zerolog.Logger
}

// NewReportService creates a new report service.
func NewReportService(
	bills ports.BillStore,
	phones ports.PhoneStore,
	consumptions ports.ConsumptionStore,
	penalties ports.PenaltyStore,
	notifier ports.Notifier,
	opts ReportOptions,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *ReportService {
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "Consumos"
	}
	return &ReportService{
		bills:        bills,
		phones:       phones,
		consumptions: consumptions,
		penalties:    penalties,
		notifier:     notifier,
		opts:         opts,
		metrics:      collector,
		logger:       logger,
	}
}

// Summary aggregates a parsed bill's consumptions into per-leader groups and
// the reconciliation outcome.
func (s *ReportService) Summary(ctx context.Context, billID string) (Summary, error) {
	bill, err := s.bills.Get(ctx, billID)
	if err != nil {
		return Summary{}, fmt.Errorf("get bill %s: %w", billID, err)
	}
	if !bill.Parsed() {
		return Summary{}, &billing.AdjustmentError{Reason: fmt.Sprintf("bill %s has no parsed invoice", billID)}
	}

	cs, err := s.consumptions.ListByBill(ctx, billID)
	if err != nil {
		return Summary{}, fmt.Errorf("list consumptions for %s: %w", billID, err)
	}
	pens, err := s.penalties.ListByBill(ctx, billID)
	if err != nil {
		return Summary{}, fmt.Errorf("list penalties for %s: %w", billID, err)
	}

	groups := make(map[string]*LeaderGroup)
	grand := money.Money{}
	for _, c := range cs {
		phone, err := s.phones.Get(ctx, c.PhoneID)
		if err != nil {
			return Summary{}, fmt.Errorf("get phone %s: %w", c.PhoneID, err)
		}

		leader := phone.Leader
		if leader == "" {
			leader = phone.Number
		}
		g, ok := groups[leader]
		if !ok {
			g = &LeaderGroup{Leader: leader}
			groups[leader] = g
		}
		g.Lines = append(g.Lines, LineSummary{
			PhoneNumber: phone.Number,
			UserName:    phone.UserName,
			PlanName:    c.PlanName,
			Mins:        c.Mins,
			PenaltyMin:  c.PenaltyMin,
			PenaltySMS:  c.PenaltySMS,
			Extra:       c.Extra,
			Total:       c.Total,
			Payed:       c.Payed,
		})
		g.Total = g.Total.Add(c.Total)
		grand = grand.Add(c.Total)

		// The leader's own line carries the delivery address.
		if phone.Number == leader && phone.Email != "" {
			g.Email = phone.Email
		}
	}

	out := Summary{
		BillID:        billID,
		BillingDate:   bill.BillingDate,
		Taxes:         bill.Taxes(),
		GrandTotal:    grand,
		ReportedTotal: bill.ReportedTotal,
		ReportedDebt:  bill.ReportedDebt,
		Outcome:       grand.Sub(bill.ReportedTotal.Add(bill.ReportedDebt)),
		Penalties:     pens,
	}
	for _, g := range groups {
		sort.Slice(g.Lines, func(i, j int) bool { return g.Lines[i].PhoneNumber < g.Lines[j].PhoneNumber })
		out.Groups = append(out.Groups, *g)
	}
	sort.Slice(out.Groups, func(i, j int) bool { return out.Groups[i].Leader < out.Groups[j].Leader })
	return out, nil
}

var reportTmpl = template.Must(template.New("report").Parse(
	`Consumos del período {{.Period}}

{{printf "%-14s %-24s %-8s %9s %9s %12s" "Línea" "Usuario" "Plan" "Min" "Multa" "Total"}}
{{range .Lines -}}
{{printf "%-14s %-24s %-8s %9s %9s %12s" .PhoneNumber .UserName .PlanName .Mins.String .PenaltyMin.String .Total.String}}
{{end}}
Total del grupo: {{.Total}}
`))

// RenderReport renders one leader group's plain-text report body.
func RenderReport(sum Summary, g LeaderGroup) (string, error) {
	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, struct {
		Period string
		Lines  []LineSummary
		Total  money.Money
	}{
		Period: sum.BillingDate.Format("2006-01"),
		Lines:  g.Lines,
		Total:  g.Total,
	})
	if err != nil {
		return "", fmt.Errorf("render report for %s: %w", g.Leader, err)
	}
	return buf.String(), nil
}

// SendReports renders and delivers one report per leader group. In dry-run
// mode the reports are rendered and logged but not handed to the notifier.
// Groups without a delivery address are skipped with a warning.
func (s *ReportService) SendReports(ctx context.Context, billID string) error {
	sum, err := s.Summary(ctx, billID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s %s", s.opts.SubjectPrefix, sum.BillingDate.Format("2006-01"))
	var failed int
	for _, g := range sum.Groups {
		body, err := RenderReport(sum, g)
		if err != nil {
			return err
		}

		if s.opts.DryRun {
			s.logger.Info().
				Str("bill_id", billID).
				Str("leader", g.Leader).
				Msg("dry run, report not delivered")
			continue
		}
		if g.Email == "" {
			s.logger.Warn().
				Str("bill_id", billID).
				Str("leader", g.Leader).
				Msg("leader has no delivery address, skipping")
			failed++
			s.metrics.ReportsFailed.Inc()
			continue
		}

		if err := s.notifier.Send(ctx, g.Email, subject, body); err != nil {
			s.logger.Error().Err(err).
				Str("bill_id", billID).
				Str("leader", g.Leader).
				Msg("report delivery failed")
			failed++
			s.metrics.ReportsFailed.Inc()
			continue
		}
		s.metrics.ReportsSent.Inc()
	}

	if failed > 0 {
		return fmt.Errorf("deliver reports for %s: %d of %d groups failed", billID, failed, len(sum.Groups))
	}
	s.logger.Info().
		Str("bill_id", billID).
		Int("groups", len(sum.Groups)).
		Bool("dry_run", s.opts.DryRun).
		Msg("reports processed")
	return nil
}
