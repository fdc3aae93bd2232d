package penalty_test

import (
	"errors"
	"testing"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/domain/plan"
)

var testPlan = plan.Plan{
	Name:            "TCL34",
	MonthlyPrice:    money.MustMoney("67"),
	PricePerMin:     money.MustMoney("0.27"),
	PricePerSMS:     money.MustMoney("0.26"),
	IncludedMin:     money.MustMinutes("100"),
	IncludedSMS:     10,
	WithMinClearing: true,
	WithSMSClearing: true,
}

func consumptionsWithMins(mins ...string) []*consumption.Consumption {
	cs := make([]*consumption.Consumption, len(mins))
	for i, m := range mins {
		cs[i] = &consumption.Consumption{}
		cs[i].Mins = money.MustMinutes(m)
	}
	return cs
}

func values(cs []*consumption.Consumption) []consumption.Consumption {
	out := make([]consumption.Consumption, len(cs))
	for i, c := range cs {
		out[i] = *c
	}
	return out
}

func sumPenaltyMin(cs []*consumption.Consumption) money.Minutes {
	sum := money.Minutes{}
	for _, c := range cs {
		sum = sum.Add(c.PenaltyMin)
	}
	return sum
}

func TestMinuteShortfall(t *testing.T) {
	tests := []struct {
		name string
		mins []string
		want string
	}{
		{"under allowance", []string{"60", "80", "100"}, "60"},
		{"at target", []string{"100", "100", "100"}, "0"},
		{"over target", []string{"150", "150", "150"}, "0"},
		{"pooled offset", []string{"40", "160"}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := values(consumptionsWithMins(tt.mins...))
			got := penalty.MinuteShortfall(testPlan, cs)
			if !got.Equal(money.MustMinutes(tt.want)) {
				t.Errorf("MinuteShortfall = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSMSShortfall(t *testing.T) {
	cs := []consumption.Consumption{{}, {}}
	cs[0].SMS = 3
	cs[1].SMS = 8

	if got := penalty.SMSShortfall(testPlan, cs); got != 9 {
		t.Errorf("SMSShortfall = %d, want 9", got)
	}
}

// The worked scenario: allowance 100, usages 60/80/100, shortfall 60.
// The 60-line is equalized to 80 first (+20), then the 60- and 80-lines are
// raised together to the allowance (+20 each). The 100-line is ineligible.
func TestDistributeMinutesScenario(t *testing.T) {
	cs := consumptionsWithMins("60", "80", "100")
	short := penalty.MinuteShortfall(testPlan, values(cs))
	if !short.Equal(money.MustMinutes("60")) {
		t.Fatalf("shortfall = %s, want 60", short)
	}

	if err := penalty.DistributeMinutes(testPlan, cs, short); err != nil {
		t.Fatalf("DistributeMinutes: %v", err)
	}

	want := []string{"40.00", "20.00", "0.00"}
	for i, c := range cs {
		if c.PenaltyMin.String() != want[i] {
			t.Errorf("penalty[%d] = %s, want %s", i, c.PenaltyMin, want[i])
		}
	}
	if got := sumPenaltyMin(cs); !got.Equal(short) {
		t.Errorf("distributed sum = %s, want %s", got, short)
	}
}

// No group receives penalty before every strictly-lower group has been
// equalized up to it.
func TestDistributeMinutesOrdering(t *testing.T) {
	cs := consumptionsWithMins("70", "70", "90")

	if err := penalty.DistributeMinutes(testPlan, cs, money.MustMinutes("70")); err != nil {
		t.Fatalf("DistributeMinutes: %v", err)
	}

	// 70s -> 90 costs 40, leaving 30 across three lines: +10 each.
	want := []string{"30.00", "30.00", "10.00"}
	for i, c := range cs {
		if c.PenaltyMin.String() != want[i] {
			t.Errorf("penalty[%d] = %s, want %s", i, c.PenaltyMin, want[i])
		}
	}
}

// A split that does not divide evenly still conserves the shortfall exactly.
func TestDistributeMinutesExactConservation(t *testing.T) {
	cs := consumptionsWithMins("90", "90", "90")
	short := money.MustMinutes("20")

	if err := penalty.DistributeMinutes(testPlan, cs, short); err != nil {
		t.Fatalf("DistributeMinutes: %v", err)
	}

	want := []string{"6.67", "6.67", "6.66"}
	for i, c := range cs {
		if c.PenaltyMin.String() != want[i] {
			t.Errorf("penalty[%d] = %s, want %s", i, c.PenaltyMin, want[i])
		}
	}
	if got := sumPenaltyMin(cs); !got.Equal(short) {
		t.Errorf("distributed sum = %s, want %s", got, short)
	}
}

func TestDistributeMinutesPartialLastGroup(t *testing.T) {
	cs := consumptionsWithMins("50", "95")

	// 50 -> 95 costs 45; 5 remain, split across both lines.
	if err := penalty.DistributeMinutes(testPlan, cs, money.MustMinutes("50")); err != nil {
		t.Fatalf("DistributeMinutes: %v", err)
	}

	want := []string{"47.50", "2.50"}
	for i, c := range cs {
		if c.PenaltyMin.String() != want[i] {
			t.Errorf("penalty[%d] = %s, want %s", i, c.PenaltyMin, want[i])
		}
	}
}

func TestDistributeSMS(t *testing.T) {
	cs := []*consumption.Consumption{{}, {}, {}}
	cs[0].SMS = 5
	cs[1].SMS = 5
	cs[2].SMS = 12 // above allowance, ineligible

	if err := penalty.DistributeSMS(testPlan, cs, 7); err != nil {
		t.Fatalf("DistributeSMS: %v", err)
	}

	if cs[0].PenaltySMS != 4 || cs[1].PenaltySMS != 3 || cs[2].PenaltySMS != 0 {
		t.Errorf("penalties = %d/%d/%d, want 4/3/0",
			cs[0].PenaltySMS, cs[1].PenaltySMS, cs[2].PenaltySMS)
	}
	if got := cs[0].PenaltySMS + cs[1].PenaltySMS + cs[2].PenaltySMS; got != 7 {
		t.Errorf("distributed sum = %d, want 7", got)
	}
}

// A shortfall larger than the eligible lines can absorb is an engine bug
// and aborts loudly.
func TestDistributeMinutesOverflow(t *testing.T) {
	cs := consumptionsWithMins("90", "95")

	err := penalty.DistributeMinutes(testPlan, cs, money.MustMinutes("30"))
	var ie *billing.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
}

func TestDistributeNoEligible(t *testing.T) {
	cs := consumptionsWithMins("100", "120")

	err := penalty.DistributeMinutes(testPlan, cs, money.MustMinutes("10"))
	var ie *billing.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
}

func TestDistributeZeroShortfallNoop(t *testing.T) {
	cs := consumptionsWithMins("60")
	if err := penalty.DistributeMinutes(testPlan, cs, money.Minutes{}); err != nil {
		t.Fatalf("DistributeMinutes: %v", err)
	}
	if !cs[0].PenaltyMin.IsZero() {
		t.Errorf("penalty = %s, want 0", cs[0].PenaltyMin)
	}
}
