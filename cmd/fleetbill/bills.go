package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/domain/money"
)

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "Manage bills and fleets",
	Long: `Manage carrier bills.

A bill is registered first (empty, carrying the fleet and the default tax
components) and populated later by 'fleetbill ingest'.

Examples:
  fleetbill bills create --id 2012-03 --fleet main
  fleetbill bills list --fleet main`,
}

var billsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an empty bill for later ingestion",
	RunE:  runBillsCreate,
}

var billsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a fleet's bills, newest first",
	RunE:  runBillsList,
}

var fleetsAddCmd = &cobra.Command{
	Use:   "add-fleet",
	Short: "Register a fleet",
	RunE:  runFleetsAdd,
}

var (
	billID        string
	billFleetID   string
	fleetID       string
	fleetProvider string
	fleetAccount  int64
	fleetEmail    string
)

func init() {
	rootCmd.AddCommand(billsCmd)

	billsCmd.AddCommand(billsCreateCmd)
	billsCmd.AddCommand(billsListCmd)
	billsCmd.AddCommand(fleetsAddCmd)

	billsCreateCmd.Flags().StringVar(&billID, "id", "", "bill ID (required)")
	billsCreateCmd.Flags().StringVar(&billFleetID, "fleet", "", "fleet ID (required)")
	billsCreateCmd.MarkFlagRequired("id")
	billsCreateCmd.MarkFlagRequired("fleet")

	billsListCmd.Flags().StringVar(&billFleetID, "fleet", "", "fleet ID (required)")
	billsListCmd.MarkFlagRequired("fleet")

	fleetsAddCmd.Flags().StringVar(&fleetID, "id", "", "fleet ID (required)")
	fleetsAddCmd.Flags().StringVar(&fleetProvider, "provider", "", "carrier name")
	fleetsAddCmd.Flags().Int64Var(&fleetAccount, "account", 0, "carrier account number")
	fleetsAddCmd.Flags().StringVar(&fleetEmail, "email", "", "fleet contact address")
	fleetsAddCmd.MarkFlagRequired("id")
}

func runBillsCreate(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.fleets.Get(ctx, billFleetID); err != nil {
		return fmt.Errorf("fleet not found: %s", billFleetID)
	}

	internal, iva, other, err := s.cfg.Taxes.Components()
	if err != nil {
		return err
	}

	b := billing.Bill{
		ID:          billID,
		FleetID:     billFleetID,
		UploadDate:  time.Now(),
		InternalTax: internal,
		IvaTax:      iva,
		OtherTax:    other,
	}
	if err := s.bills.Create(ctx, b); err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	fmt.Printf("%s Created bill: %s\n", checkMark, billID)
	fmt.Printf("   Fleet:  %s\n", billFleetID)
	fmt.Printf("   Taxes:  %s\n", b.Taxes())
	fmt.Printf("   Next:   fleetbill ingest --bill %s --file parsed.json\n", billID)
	return nil
}

func runBillsList(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	bills, err := s.bills.List(context.Background(), billFleetID)
	if err != nil {
		return fmt.Errorf("failed to list bills: %w", err)
	}

	if len(bills) == 0 {
		fmt.Println("No bills found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBILLING DATE\tPARSED\tPROVIDER NO\tREPORTED\tDEBT")
	fmt.Fprintln(w, "--\t------------\t------\t-----------\t--------\t----")
	for _, b := range bills {
		billingDate := "-"
		if !b.BillingDate.IsZero() {
			billingDate = b.BillingDate.Format("2006-01-02")
		}
		parsed := "no"
		if b.Parsed() {
			parsed = b.ParsingDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, billingDate, parsed, orDash(b.ProviderNumber),
			moneyOrDash(b.ReportedTotal), moneyOrDash(b.ReportedDebt))
	}
	w.Flush()
	return nil
}

func runFleetsAdd(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	f := billing.Fleet{
		ID:            fleetID,
		Provider:      fleetProvider,
		AccountNumber: fleetAccount,
		Email:         fleetEmail,
	}
	if err := s.fleets.Create(context.Background(), f); err != nil {
		return fmt.Errorf("failed to create fleet: %w", err)
	}

	fmt.Printf("%s Registered fleet: %s\n", checkMark, fleetID)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func moneyOrDash(m money.Money) string {
	if m.IsZero() {
		return "-"
	}
	return m.String()
}
