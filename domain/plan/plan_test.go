package plan_test

import (
	"testing"

	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/plan"
)

func TestFind(t *testing.T) {
	plans := []plan.Plan{
		{Name: "TCL16", MonthlyPrice: money.MustMoney("39"), IncludedMin: money.MustMinutes("130"), WithMinClearing: true},
		{Name: "TCM07", MonthlyPrice: money.MustMoney("35")},
	}

	tests := []struct {
		name string
		want bool
	}{
		{"TCL16", true},
		{"TCM07", true},
		{"NOPE1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := plan.Find(plans, tt.name)
			if ok != tt.want {
				t.Fatalf("Find(%q) ok = %v, want %v", tt.name, ok, tt.want)
			}
			if ok && p.Name != tt.name {
				t.Errorf("Find(%q) returned plan %q", tt.name, p.Name)
			}
		})
	}
}
