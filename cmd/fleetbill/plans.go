package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Manage the plan registry",
	Long: `Manage phone-line pricing plans.

Plans define the monthly price, per-unit prices and pooled allowances used
when re-pricing invoice lines and distributing penalties.

Examples:
  fleetbill plans list
  fleetbill plans load    # seed plans from the config file`,
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all plans",
	RunE:  runPlansList,
}

var plansLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Seed the registry from the config file's plans section",
	RunE:  runPlansLoad,
}

func init() {
	rootCmd.AddCommand(plansCmd)

	plansCmd.AddCommand(plansListCmd)
	plansCmd.AddCommand(plansLoadCmd)
}

func runPlansList(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	plans, err := s.plans.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}

	if len(plans) == 0 {
		fmt.Println("No plans found.")
		fmt.Println()
		fmt.Println("Seed plans from the config file with: fleetbill plans load")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMONTHLY\tMIN PRICE\tSMS PRICE\tINCL MIN\tINCL SMS\tCLEARING")
	fmt.Fprintln(w, "----\t-------\t---------\t---------\t--------\t--------\t--------")
	for _, p := range plans {
		clearing := "-"
		switch {
		case p.WithMinClearing && p.WithSMSClearing:
			clearing = "min+sms"
		case p.WithMinClearing:
			clearing = "min"
		case p.WithSMSClearing:
			clearing = "sms"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			p.Name, p.MonthlyPrice, p.PricePerMin, p.PricePerSMS,
			p.IncludedMin, p.IncludedSMS, clearing)
	}
	w.Flush()
	return nil
}

func runPlansLoad(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	if len(s.cfg.Plans) == 0 {
		fmt.Println("Config file defines no plans.")
		return nil
	}

	ctx := context.Background()
	for _, pc := range s.cfg.Plans {
		p, err := pc.ToPlan()
		if err != nil {
			return err
		}
		if err := s.plans.Upsert(ctx, p); err != nil {
			return fmt.Errorf("failed to upsert plan %s: %w", p.Name, err)
		}
	}

	fmt.Printf("%s Loaded %d plans from %s\n", checkMark, len(s.cfg.Plans), cfgFile)
	return nil
}
