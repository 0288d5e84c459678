package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/pkg/output"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/designation"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text...>",
		Short: "Classify a designation note as a transfer",
		Example: `  bagile classify "Transfer from cancelled PSM-201125-AB"
  bagile classify --output json transfer from PSPO-011225-CB`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := designation.Parse(strings.Join(args, " "))
			w := cmd.OutOrStdout()

			if opts.json() {
				return output.JSON(w, c)
			}

			table := output.NewTable([]string{"TRANSFER", "ORIGINAL SKU", "REASON", "REFUND ELIGIBLE"})
			table.AddRow([]string{
				output.YesNo(c.IsTransfer),
				c.OriginalSku,
				c.Reason.String(),
				output.YesNo(c.RefundEligible),
			})
			table.Render(w)
			return nil
		},
	}
}
