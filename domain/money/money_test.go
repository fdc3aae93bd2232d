package money_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/artpar/fleetbill/domain/money"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0", "0.000", false},
		{"12.5", "12.500", false},
		{"-3.141", "-3.141", false},
		{"0.001", "0.001", false},
		{"0.0001", "", true}, // too many places
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := money.ParseMoney(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMoney(%q) = %v, want error", tt.in, m)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMoney(%q): %v", tt.in, err)
			}
			if got := m.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := money.MustMoney("10.250")
	b := money.MustMoney("0.750")

	if got := a.Add(b); !got.Equal(money.MustMoney("11")) {
		t.Errorf("Add = %s, want 11.000", got)
	}
	if got := a.Sub(b); !got.Equal(money.MustMoney("9.5")) {
		t.Errorf("Sub = %s, want 9.500", got)
	}
	if got := b.MulCount(4); !got.Equal(money.MustMoney("3")) {
		t.Errorf("MulCount = %s, want 3.000", got)
	}
	if got := money.MustMoney("0.27").MulMinutes(money.MustMinutes("100")); !got.Equal(money.MustMoney("27")) {
		t.Errorf("MulMinutes = %s, want 27.000", got)
	}
}

func TestMoneyWithTaxes(t *testing.T) {
	base := money.MustMoney("100")
	taxes := money.MustTax("0.0417").Add(money.MustTax("0.27")).Add(money.MustTax("0.01"))

	got := base.WithTaxes(taxes)
	if want := money.MustMoney("132.17"); !got.Equal(want) {
		t.Errorf("WithTaxes = %s, want %s", got, want)
	}
}

// The rounding rule is half-up (away from zero), applied consistently on
// both halves of the boundary.
func TestRoundToUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.5", "11.000"},
		{"11.5", "12.000"},
		{"10.499", "10.000"},
		{"10.501", "11.000"},
		{"-10.5", "-11.000"},
		{"0", "0.000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := money.MustMoney(tt.in).RoundToUnit()
			if got.String() != tt.want {
				t.Errorf("RoundToUnit(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTaxInterval(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0", false},
		{"0.27", false},
		{"0.99999", false},
		{"1", true},
		{"1.5", true},
		{"-0.1", true},
		{"0.000001", true}, // too many places
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := money.ParseTax(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTax(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestMinutes(t *testing.T) {
	a := money.MustMinutes("60.25")
	b := money.MustMinutes("39.75")

	if got := a.Add(b); !got.Equal(money.MustMinutes("100")) {
		t.Errorf("Add = %s, want 100.00", got)
	}
	if a.Cmp(b) != 1 {
		t.Errorf("Cmp = %d, want 1", a.Cmp(b))
	}
	if _, err := money.ParseMinutes("1.123"); err == nil {
		t.Error("ParseMinutes(1.123) accepted three decimal places")
	}
}

func TestMoneyJSON(t *testing.T) {
	type payload struct {
		Amount money.Money   `json:"amount"`
		Mins   money.Minutes `json:"mins"`
		Tax    money.Tax     `json:"tax"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"amount":"35.000","mins":100.5,"tax":"0.27"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Amount.Equal(money.MustMoney("35")) {
		t.Errorf("amount = %s", p.Amount)
	}
	if !p.Mins.Equal(money.MustMinutes("100.5")) {
		t.Errorf("mins = %s", p.Mins)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"amount":"35.000","mins":"100.50","tax":"0.27000"}`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}

	var bad payload
	if err := json.Unmarshal([]byte(`{"tax":"1.2"}`), &bad); err == nil {
		t.Error("tax 1.2 accepted")
	}
}

func TestSplitEven(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		exp   int32
		want  []string
	}{
		{"thirds of 20 minutes", "20", 3, -2, []string{"6.67", "6.67", "6.66"}},
		{"exact halves", "40", 2, -2, []string{"20", "20"}},
		{"seven sms over two", "7", 2, 0, []string{"4", "3"}},
		{"single share", "12.34", 1, -2, []string{"12.34"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			shares := money.SplitEven(total, tt.n, tt.exp)
			if len(shares) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(shares), len(tt.want))
			}
			sum := decimal.Zero
			for i, s := range shares {
				if !s.Equal(decimal.RequireFromString(tt.want[i])) {
					t.Errorf("share[%d] = %s, want %s", i, s, tt.want[i])
				}
				sum = sum.Add(s)
			}
			if !sum.Equal(total) {
				t.Errorf("sum = %s, want %s", sum, total)
			}
		})
	}
}
