package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var settleBillID string

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Recalculate a bill's pooled-allowance penalties",
	Long: `Recalculate every plan-wide penalty for an ingested bill.

For each plan with clearing enabled, the unused pooled allowance is
distributed across the plan's lines starting from the lightest users, and
every affected line's total is recomputed. Safe to repeat: each run replaces
the previous penalty state.

Examples:
  fleetbill settle --bill 2012-03`,
	RunE: runSettle,
}

func init() {
	rootCmd.AddCommand(settleCmd)

	settleCmd.Flags().StringVar(&settleBillID, "bill", "", "bill ID (required)")
	settleCmd.MarkFlagRequired("bill")
}

func runSettle(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.settlement.CalculatePenalties(ctx, settleBillID); err != nil {
		return fmt.Errorf("settlement failed: %w", err)
	}

	pens, err := s.penalties.ListByBill(ctx, settleBillID)
	if err != nil {
		return fmt.Errorf("failed to list penalties: %w", err)
	}

	fmt.Printf("%s Settled bill %s\n", checkMark, settleBillID)
	if len(pens) == 0 {
		fmt.Println("   No plan ended with a shortfall.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAN\tMINUTES\tSMS")
	fmt.Fprintln(w, "----\t-------\t---")
	for _, p := range pens {
		fmt.Fprintf(w, "%s\t%s\t%d\n", p.PlanName, p.Minutes, p.SMS)
	}
	w.Flush()
	return nil
}
