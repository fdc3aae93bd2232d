package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/fleetbill/adapters/idgen"
	"github.com/artpar/fleetbill/ports"
)

var phonesCmd = &cobra.Command{
	Use:   "phones",
	Short: "Manage phone lines",
	Long: `Manage the phone lines invoices are matched against.

Every invoice line must resolve to a registered phone number; unknown
numbers fail the whole ingestion.

Examples:
  fleetbill phones list
  fleetbill phones add --number 612345678 --user "Jane Roe" --leader 612000000`,
}

var phonesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all phone lines",
	RunE:  runPhonesList,
}

var phonesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a phone line",
	RunE:  runPhonesAdd,
}

var (
	phoneNumber string
	phoneUser   string
	phoneEmail  string
	phoneLeader string
	phonePlan   string
)

func init() {
	rootCmd.AddCommand(phonesCmd)

	phonesCmd.AddCommand(phonesListCmd)
	phonesCmd.AddCommand(phonesAddCmd)

	phonesAddCmd.Flags().StringVar(&phoneNumber, "number", "", "line number (required)")
	phonesAddCmd.Flags().StringVar(&phoneUser, "user", "", "user name (required)")
	phonesAddCmd.Flags().StringVar(&phoneEmail, "email", "", "delivery address for reports")
	phonesAddCmd.Flags().StringVar(&phoneLeader, "leader", "", "leader's line number (default: self)")
	phonesAddCmd.Flags().StringVar(&phonePlan, "plan", "", "current plan name")
	phonesAddCmd.MarkFlagRequired("number")
	phonesAddCmd.MarkFlagRequired("user")
}

func runPhonesList(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	phones, err := s.phones.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list phones: %w", err)
	}

	if len(phones) == 0 {
		fmt.Println("No phones found.")
		fmt.Println()
		fmt.Println("Register one with: fleetbill phones add --number <n> --user <name>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tUSER\tLEADER\tPLAN\tEMAIL\tACTIVE")
	fmt.Fprintln(w, "------\t----\t------\t----\t-----\t------")
	for _, p := range phones {
		active := "yes"
		if !p.Active(time.Now()) {
			active = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Number, p.UserName, p.Leader, p.PlanName, p.Email, active)
	}
	w.Flush()
	return nil
}

func runPhonesAdd(cmd *cobra.Command, args []string) error {
	s, err := newServices()
	if err != nil {
		return err
	}
	defer s.Close()

	p := ports.Phone{
		ID:          idgen.UUID{}.New(),
		Number:      phoneNumber,
		UserName:    phoneUser,
		Email:       phoneEmail,
		Leader:      phoneLeader,
		PlanName:    phonePlan,
		ActiveSince: time.Now(),
	}
	if err := s.phones.Create(context.Background(), p); err != nil {
		return fmt.Errorf("failed to create phone: %w", err)
	}

	fmt.Printf("%s Registered phone: %s (%s)\n", checkMark, p.Number, p.UserName)
	return nil
}
