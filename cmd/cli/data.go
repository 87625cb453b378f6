package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd, balancesCmd, jarsCmd, exportCmd, importCmd, resetCmd)

	now := time.Now()
	balancesCmd.Flags().Int("year", now.Year(), "Year")
	balancesCmd.Flags().Int("month", int(now.Month()), "Month, 1..12")
	exportCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
	resetCmd.Flags().Bool("yes", false, "Confirm deleting every ledger entity")
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := ledgerApp.Service.GetAccounts(cmd.Context())
		if err != nil {
			return err
		}
		tw := newTable()
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCURRENCY\tACTIVE")
		for _, a := range accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", a.ID, a.Name, a.AccountTypeID, a.Currency, a.IsActive)
		}
		return tw.Flush()
	},
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show opening, movements and closing balance per active account for a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		month, _ := cmd.Flags().GetInt("month")
		if month < 1 || month > 12 {
			return fmt.Errorf("month must be 1..12, got %d", month)
		}

		view, err := ledgerApp.Service.PeriodStates(cmd.Context(), month-1, year)
		if err != nil {
			return err
		}

		fmt.Printf("Period %s\n\n", view.Period)
		tw := newTable()
		fmt.Fprintln(tw, "ACCOUNT\tOPENING\tIN\tOUT\tCLOSING\tANCHORED")
		for _, st := range view.States {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
				st.Account.Name,
				st.OpeningBalance.StringFixed(2),
				st.TotalIn.StringFixed(2),
				st.TotalOut.StringFixed(2),
				st.FinalBalance.StringFixed(2),
				st.HasOpeningRecord,
			)
		}
		fmt.Fprintf(tw, "TOTAL (cashflow)\t\t%s\t%s\t%s\t\n",
			view.Summary.TotalIn.StringFixed(2),
			view.Summary.TotalOut.StringFixed(2),
			view.Summary.TotalFinal.StringFixed(2),
		)
		return tw.Flush()
	},
}

var jarsCmd = &cobra.Command{
	Use:   "jars",
	Short: "Show current value of every savings jar",
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := ledgerApp.Service.JarValues(cmd.Context())
		if err != nil {
			return err
		}
		tw := newTable()
		fmt.Fprintln(tw, "NAME\tPRINCIPAL\tRATE\tDAYS\tVALUE")
		for _, j := range values {
			fmt.Fprintf(tw, "%s\t%s\t%s%%\t%d\t%s\n",
				j.Name, j.Principal.StringFixed(2), j.AnnualRate.String(), j.ElapsedDays, j.CurrentValue.StringFixed(2))
		}
		return tw.Flush()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole ledger as one JSON document",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := ledgerApp.Service.ExportAllData(cmd.Context())
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			_, err = os.Stdout.Write(append(doc, '\n'))
			return err
		}
		if err := os.WriteFile(out, doc, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d bytes to %s\n", len(doc), out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace ledger entities with the ones in an export document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		if err := ledgerApp.Service.ImportAllData(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Println("Import completed.")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every local ledger entity; the starter data is seeded again on next read",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		if err := ledgerApp.Store.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Local ledger reset.")
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
