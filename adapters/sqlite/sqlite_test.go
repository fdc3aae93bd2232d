package sqlite_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/artpar/fleetbill/adapters/sqlite"
	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/consumption"
	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/penalty"
	"github.com/artpar/fleetbill/domain/plan"
	"github.com/artpar/fleetbill/ports"
)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "fleetbill-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
	}

	return db, cleanup
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testPlan() plan.Plan {
	return plan.Plan{
		Name:            "TCM06",
		MonthlyPrice:    money.MustMoney("39"),
		PricePerMin:     money.MustMoney("0.31"),
		PricePerSMS:     money.MustMoney("0.10"),
		IncludedMin:     money.MustMinutes("120"),
		IncludedSMS:     20,
		WithMinClearing: true,
		WithSMSClearing: true,
		Description:     "120 pooled minutes, 20 pooled SMS",
	}
}

func seedFleetAndBill(t *testing.T, db *sqlite.DB) billing.Bill {
	t.Helper()
	ctx := context.Background()

	fleets := sqlite.NewFleetStore(db)
	if err := fleets.Create(ctx, billing.Fleet{ID: "f1", Provider: "movistar", AccountNumber: 123456, Email: "admin@example.com"}); err != nil {
		t.Fatalf("create fleet: %v", err)
	}

	b := billing.Bill{
		ID:            "b1",
		FleetID:       "f1",
		BillingDate:   date(2012, time.March, 1),
		UploadDate:    date(2012, time.March, 4),
		InternalTax:   money.MustTax("0.0417"),
		IvaTax:        money.MustTax("0.27"),
		OtherTax:      money.MustTax("0.01"),
		ReportedTotal: money.MustMoney("1500"),
		ReportedDebt:  money.MustMoney("0"),
	}
	if err := sqlite.NewBillStore(db).Create(ctx, b); err != nil {
		t.Fatalf("create bill: %v", err)
	}
	return b
}

// -----------------------------------------------------------------------------
// PlanStore
// -----------------------------------------------------------------------------

func TestPlanStore_UpsertAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewPlanStore(db)
	ctx := context.Background()

	p := testPlan()
	if err := store.Upsert(ctx, p); err != nil {
		t.Fatalf("upsert plan: %v", err)
	}

	got, err := store.Get(ctx, p.Name)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !got.MonthlyPrice.Equal(p.MonthlyPrice) {
		t.Errorf("MonthlyPrice = %s, want %s", got.MonthlyPrice, p.MonthlyPrice)
	}
	if !got.IncludedMin.Equal(p.IncludedMin) {
		t.Errorf("IncludedMin = %s, want %s", got.IncludedMin, p.IncludedMin)
	}
	if !got.WithMinClearing || !got.WithSMSClearing {
		t.Error("clearing flags not round-tripped")
	}

	// Upsert replaces in place.
	p.MonthlyPrice = money.MustMoney("45")
	if err := store.Upsert(ctx, p); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _ = store.Get(ctx, p.Name)
	if !got.MonthlyPrice.Equal(money.MustMoney("45")) {
		t.Errorf("MonthlyPrice after upsert = %s, want 45.000", got.MonthlyPrice)
	}
}

func TestPlanStore_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewPlanStore(db)
	ctx := context.Background()

	if _, err := store.Get(ctx, "nonexistent"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlanStore_List(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewPlanStore(db)
	ctx := context.Background()

	names := []string{"TCM06", "TCL10", "TSC14"}
	for _, name := range names {
		p := testPlan()
		p.Name = name
		if err := store.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}

	plans, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("len = %d, want 3", len(plans))
	}
	if plans[0].Name != "TCL10" {
		t.Errorf("first plan = %s, want TCL10", plans[0].Name)
	}
}

// -----------------------------------------------------------------------------
// PhoneStore
// -----------------------------------------------------------------------------

func TestPhoneStore_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewPhoneStore(db)
	ctx := context.Background()

	until := date(2013, time.January, 1)
	p := ports.Phone{
		ID:          "p1",
		Number:      "1155501234",
		UserName:    "Ada Lovelace",
		Email:       "ada@example.com",
		Leader:      "ops",
		PlanName:    "TCM06",
		ActiveSince: date(2011, time.June, 1),
		ActiveTo:    &until,
	}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("create phone: %v", err)
	}

	got, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get phone: %v", err)
	}
	if got.Number != p.Number {
		t.Errorf("Number = %s, want %s", got.Number, p.Number)
	}
	if got.ActiveTo == nil || !got.ActiveTo.Equal(until) {
		t.Errorf("ActiveTo = %v, want %v", got.ActiveTo, until)
	}

	byNumber, err := store.GetByNumber(ctx, p.Number)
	if err != nil || byNumber.ID != "p1" {
		t.Errorf("GetByNumber = %+v, %v", byNumber, err)
	}
}

func TestPhoneStore_DuplicateNumber(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewPhoneStore(db)
	ctx := context.Background()

	p := ports.Phone{ID: "p1", Number: "1155501234", ActiveSince: date(2011, time.June, 1)}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("create phone: %v", err)
	}

	var ie *billing.IntegrityError
	err := store.Create(ctx, ports.Phone{ID: "p2", Number: "1155501234", ActiveSince: date(2011, time.June, 1)})
	if !errors.As(err, &ie) {
		t.Errorf("duplicate number: got %v, want IntegrityError", err)
	}
}

// -----------------------------------------------------------------------------
// BillStore
// -----------------------------------------------------------------------------

func TestBillStore_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	b := seedFleetAndBill(t, db)
	ctx := context.Background()

	got, err := sqlite.NewBillStore(db).Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if got.Parsed() {
		t.Error("new bill should not be parsed")
	}
	if !got.Taxes().Equal(money.MustTax("0.3217")) {
		t.Errorf("Taxes = %s, want 0.32170", got.Taxes())
	}
	if !got.ReportedTotal.Equal(b.ReportedTotal) {
		t.Errorf("ReportedTotal = %s, want %s", got.ReportedTotal, b.ReportedTotal)
	}
}

func TestBillStore_MarkParsedAtomic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	b := seedFleetAndBill(t, db)
	ctx := context.Background()

	phones := sqlite.NewPhoneStore(db)
	for _, id := range []string{"p1", "p2"} {
		if err := phones.Create(ctx, ports.Phone{ID: id, Number: "115550" + id, ActiveSince: date(2011, time.June, 1)}); err != nil {
			t.Fatalf("create phone %s: %v", id, err)
		}
	}

	bills := sqlite.NewBillStore(db)
	parsed := date(2012, time.March, 5)
	b.ParsingDate = &parsed

	p := testPlan()
	taxes := b.Taxes()
	mk := func(id, phoneID string) consumption.Consumption {
		c := consumption.Consumption{ID: id, PhoneID: phoneID, BillID: b.ID, PlanName: p.Name}
		c.Line = consumption.Line{
			MonthlyPrice:  money.MustMoney("39"),
			IncludedMin:   money.MustMinutes("100"),
			ReportedTotal: money.MustMoney("45.2"),
		}
		c.Recompute(p, taxes)
		return c
	}

	if err := bills.MarkParsed(ctx, b, []consumption.Consumption{mk("c1", "p1"), mk("c2", "p2")}); err != nil {
		t.Fatalf("mark parsed: %v", err)
	}

	got, _ := bills.Get(ctx, b.ID)
	if !got.Parsed() {
		t.Error("bill should be parsed")
	}

	cons := sqlite.NewConsumptionStore(db)
	list, err := cons.ListByBill(ctx, b.ID)
	if err != nil {
		t.Fatalf("list by bill: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if !list[0].Total.Equal(list[0].TotalBeforeRound.RoundToUnit()) {
		t.Errorf("Total = %s not the rounded TotalBeforeRound %s", list[0].Total, list[0].TotalBeforeRound)
	}

	// Re-ingesting the same pair rolls the whole batch back.
	var ie *billing.IntegrityError
	err = bills.MarkParsed(ctx, b, []consumption.Consumption{mk("c3", "p1")})
	if !errors.As(err, &ie) {
		t.Fatalf("duplicate pair: got %v, want IntegrityError", err)
	}
	if _, err := cons.Get(ctx, "c3"); !errors.Is(err, ports.ErrNotFound) {
		t.Error("c3 persisted despite rollback")
	}
}

func TestBillStore_MarkParsedStoresBillingDate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fleets := sqlite.NewFleetStore(db)
	if err := fleets.Create(ctx, billing.Fleet{ID: "f1"}); err != nil {
		t.Fatalf("create fleet: %v", err)
	}

	// Bills are registered empty; the billing date only arrives with the
	// parsed invoice.
	bills := sqlite.NewBillStore(db)
	b := billing.Bill{
		ID:          "b1",
		FleetID:     "f1",
		UploadDate:  date(2012, time.March, 4),
		InternalTax: money.MustTax("0.0417"),
		IvaTax:      money.MustTax("0.27"),
		OtherTax:    money.MustTax("0.01"),
	}
	if err := bills.Create(ctx, b); err != nil {
		t.Fatalf("create bill: %v", err)
	}

	b.BillingDate = date(2012, time.March, 1)
	parsed := date(2012, time.March, 5)
	b.ParsingDate = &parsed
	b.ProviderNumber = "INV-0042"
	b.ReportedTotal = money.MustMoney("150")
	if err := bills.MarkParsed(ctx, b, nil); err != nil {
		t.Fatalf("mark parsed: %v", err)
	}

	got, err := bills.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if !got.BillingDate.Equal(b.BillingDate) {
		t.Errorf("BillingDate = %s, want %s", got.BillingDate, b.BillingDate)
	}
}

// -----------------------------------------------------------------------------
// ConsumptionStore
// -----------------------------------------------------------------------------

func TestConsumptionStore_LatestForPhone(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fleets := sqlite.NewFleetStore(db)
	fleets.Create(ctx, billing.Fleet{ID: "f1", Provider: "movistar"})
	phones := sqlite.NewPhoneStore(db)
	phones.Create(ctx, ports.Phone{ID: "p1", Number: "1155501234", ActiveSince: date(2011, time.June, 1)})

	bills := sqlite.NewBillStore(db)
	for i, billed := range []time.Time{
		date(2012, time.January, 1),
		date(2012, time.February, 1),
		date(2012, time.March, 1),
	} {
		id := []string{"b1", "b2", "b3"}[i]
		b := billing.Bill{
			ID: id, FleetID: "f1", BillingDate: billed, UploadDate: billed,
			InternalTax:   money.MustTax("0.0417"),
			IvaTax:        money.MustTax("0.27"),
			OtherTax:      money.MustTax("0.01"),
			ReportedTotal: money.MustMoney("100"),
			ReportedDebt:  money.MustMoney("0"),
		}
		if err := bills.Create(ctx, b); err != nil {
			t.Fatalf("create bill %s: %v", id, err)
		}
		parsed := billed
		b.ParsingDate = &parsed
		c := consumption.Consumption{ID: "c-" + id, PhoneID: "p1", BillID: id, PlanName: "TCM06"}
		c.Recompute(testPlan(), b.Taxes())
		if err := bills.MarkParsed(ctx, b, []consumption.Consumption{c}); err != nil {
			t.Fatalf("mark parsed %s: %v", id, err)
		}
	}

	store := sqlite.NewConsumptionStore(db)
	got, err := store.LatestForPhone(ctx, "p1", date(2012, time.March, 1))
	if err != nil {
		t.Fatalf("latest for phone: %v", err)
	}
	if got.ID != "c-b2" {
		t.Errorf("latest = %s, want c-b2 (strictly before the date)", got.ID)
	}

	if _, err := store.LatestForPhone(ctx, "p1", date(2012, time.January, 1)); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// -----------------------------------------------------------------------------
// PenaltyStore
// -----------------------------------------------------------------------------

func TestPenaltyStore_Replace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	b := seedFleetAndBill(t, db)
	ctx := context.Background()

	phones := sqlite.NewPhoneStore(db)
	phones.Create(ctx, ports.Phone{ID: "p1", Number: "1155501234", ActiveSince: date(2011, time.June, 1)})

	bills := sqlite.NewBillStore(db)
	parsed := date(2012, time.March, 5)
	b.ParsingDate = &parsed

	p := testPlan()
	c := consumption.Consumption{ID: "c1", PhoneID: "p1", BillID: b.ID, PlanName: p.Name}
	c.Line = consumption.Line{IncludedMin: money.MustMinutes("60"), ReportedTotal: money.MustMoney("45.2")}
	c.Recompute(p, b.Taxes())
	if err := bills.MarkParsed(ctx, b, []consumption.Consumption{c}); err != nil {
		t.Fatalf("mark parsed: %v", err)
	}

	store := sqlite.NewPenaltyStore(db)
	pen := penalty.Penalty{BillID: b.ID, PlanName: p.Name, Minutes: money.MustMinutes("60"), SMS: 5}
	c.PenaltyMin = money.MustMinutes("60")
	c.PenaltySMS = 5
	c.Recompute(p, b.Taxes())
	if err := store.Replace(ctx, b.ID, p.Name, &pen, []consumption.Consumption{c}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.Get(ctx, b.ID, p.Name)
	if err != nil {
		t.Fatalf("get penalty: %v", err)
	}
	if !got.Minutes.Equal(pen.Minutes) || got.SMS != 5 {
		t.Errorf("penalty = %+v, want %+v", got, pen)
	}

	stored, _ := sqlite.NewConsumptionStore(db).Get(ctx, "c1")
	if !stored.PenaltyMin.Equal(money.MustMinutes("60")) {
		t.Errorf("PenaltyMin = %s, want 60.00", stored.PenaltyMin)
	}

	// Replace with nil clears the record.
	c.PenaltyMin = money.Minutes{}
	c.PenaltySMS = 0
	c.Recompute(p, b.Taxes())
	if err := store.Replace(ctx, b.ID, p.Name, nil, []consumption.Consumption{c}); err != nil {
		t.Fatalf("replace nil: %v", err)
	}
	if _, err := store.Get(ctx, b.ID, p.Name); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound after clearing, got %v", err)
	}
	list, _ := store.ListByBill(ctx, b.ID)
	if len(list) != 0 {
		t.Errorf("ListByBill after clearing: %+v", list)
	}
}

// -----------------------------------------------------------------------------
// Migration
// -----------------------------------------------------------------------------

func TestMigration_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Migrate(); err != nil {
		t.Fatalf("second migration: %v", err)
	}
}
