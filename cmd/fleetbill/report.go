package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/fleetbill/app"
)

var (
	reportBillID string
	reportSend   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render (and optionally deliver) per-leader consumption reports",
	Long: `Render the per-leader consumption reports of a settled bill.

Without --send the reports are printed to stdout. With --send each leader
group's report is emailed to the leader's address through the configured
SMTP server.

Examples:
  fleetbill report --bill 2012-03
  fleetbill report --bill 2012-03 --send`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportBillID, "bill", "", "bill ID (required)")
	reportCmd.Flags().BoolVar(&reportSend, "send", false, "deliver reports by email")
	reportCmd.MarkFlagRequired("bill")
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	reports := s.reports(reportSend)

	sum, err := reports.Summary(ctx, reportBillID)
	if err != nil {
		return fmt.Errorf("failed to build summary: %w", err)
	}

	if reportSend {
		if s.cfg.SMTP.Host == "" {
			return fmt.Errorf("--send requires smtp.host in the config")
		}
		if err := reports.SendReports(ctx, reportBillID); err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}
		fmt.Printf("%s Delivered %d reports for bill %s\n", checkMark, len(sum.Groups), reportBillID)
		return nil
	}

	for _, g := range sum.Groups {
		body, err := app.RenderReport(sum, g)
		if err != nil {
			return err
		}
		fmt.Printf("--- %s", g.Leader)
		if g.Email != "" {
			fmt.Printf(" <%s>", g.Email)
		}
		fmt.Println(" ---")
		fmt.Println(body)
	}

	fmt.Printf("Grand total:    %s\n", sum.GrandTotal)
	fmt.Printf("Reported total: %s (+ %s debt)\n", sum.ReportedTotal, sum.ReportedDebt)
	fmt.Printf("Outcome:        %s\n", sum.Outcome)
	return nil
}
