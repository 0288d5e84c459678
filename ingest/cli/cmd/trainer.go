package cmd

import (
	"github.com/spf13/cobra"

	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/pkg/output"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
)

type trainerRow struct {
	Sku         string `json:"sku"`
	Course      string `json:"course"`
	TrainerCode string `json:"trainerCode"`
	Trainer     string `json:"trainer,omitempty"`
	Known       bool   `json:"known"`
}

func newTrainerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "trainer <sku>...",
		Short:   "Resolve trainers from course SKUs",
		Example: `  bagile trainer PSM-201125-AB PSPO-011225-CB`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := opts.resolver()
			if err != nil {
				return err
			}

			rows := make([]trainerRow, 0, len(args))
			for _, sku := range args {
				name, ok := resolver.FromSku(sku)
				rows = append(rows, trainerRow{
					Sku:         sku,
					Course:      skus.CourseCode(sku),
					TrainerCode: skus.TrainerCode(sku),
					Trainer:     name,
					Known:       ok,
				})
			}

			w := cmd.OutOrStdout()
			if opts.json() {
				return output.JSON(w, rows)
			}

			table := output.NewTable([]string{"SKU", "COURSE", "TRAINER CODE", "TRAINER"})
			for _, r := range rows {
				trainer := r.Trainer
				if !r.Known {
					trainer = "-"
				}
				table.AddRow([]string{r.Sku, r.Course, r.TrainerCode, trainer})
			}
			table.Render(w)
			return nil
		},
	}
}
