package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/pkg/output"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/accounting"
)

func newFilterCmd(opts *rootOptions) *cobra.Command {
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Inspect the accounting invoice capture filter",
	}
	filterCmd.AddCommand(newFilterPredicateCmd(opts), newFilterCheckCmd(opts))
	return filterCmd
}

func newFilterPredicateCmd(opts *rootOptions) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:     "predicate",
		Short:   "Print the server-side invoice query predicate",
		Example: `  bagile filter predicate --since 2025-11-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var modifiedSince time.Time
			if since != "" {
				t, err := time.Parse(time.DateOnly, since)
				if err != nil {
					return fmt.Errorf("invalid --since %q: want yyyy-mm-dd", since)
				}
				modifiedSince = t
			}

			predicate := accounting.ToQueryPredicate(modifiedSince)
			if opts.json() {
				return output.JSON(cmd.OutOrStdout(), map[string]string{"where": predicate})
			}
			fmt.Fprintln(cmd.OutOrStdout(), predicate)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only invoices dated on or after this day (yyyy-mm-dd)")
	return cmd
}

func newFilterCheckCmd(opts *rootOptions) *cobra.Command {
	var inv accounting.Invoice

	cmd := &cobra.Command{
		Use:     "check",
		Short:   "Report whether an invoice would be captured",
		Example: `  bagile filter check --type ACCREC --status PAID --reference INV-42`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			captured := accounting.ShouldCapture(inv)
			w := cmd.OutOrStdout()

			if opts.json() {
				return output.JSON(w, map[string]interface{}{
					"type":      inv.Type,
					"status":    inv.Status,
					"reference": inv.Reference,
					"captured":  captured,
				})
			}

			if captured {
				output.Success(w, "captured")
			} else {
				output.Warn(w, "not captured")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inv.Type, "type", accounting.TypeAccountsReceivable, "invoice type")
	cmd.Flags().StringVar(&inv.Status, "status", "", "invoice status")
	cmd.Flags().StringVar(&inv.Reference, "reference", "", "invoice reference")
	return cmd
}
