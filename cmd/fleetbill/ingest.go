package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/fleetbill/ports"
)

var (
	ingestBillID string
	ingestFile   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a parsed invoice into a bill",
	Long: `Ingest a parsed carrier invoice into an existing bill.

The input file is the JSON output of the invoice parser: bill-level fields
(billing date, provider number, totals, optional tax overrides) plus one
record per phone line. Every line is validated before anything is written;
a bill can be ingested exactly once.

Examples:
  fleetbill ingest --bill 2012-03 --file parsed.json`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestBillID, "bill", "", "bill ID (required)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "parsed invoice JSON file (required)")
	ingestCmd.MarkFlagRequired("bill")
	ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(ingestFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ingestFile, err)
	}

	var inv ports.ParsedInvoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("failed to parse %s: %w", ingestFile, err)
	}

	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.settlement.IngestInvoice(context.Background(), ingestBillID, inv); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("%s Ingested bill %s\n", checkMark, ingestBillID)
	fmt.Printf("   Billing date: %s\n", inv.BillingDate)
	fmt.Printf("   Lines:        %d\n", len(inv.Lines))
	fmt.Printf("   Reported:     %s (+ %s debt)\n", inv.Total, inv.Debt)
	return nil
}
