package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/internal/client"
	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/internal/seeder"
	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/pkg/output"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		count        int
		url          string
		seed         int64
		transferRate float64
		firstOrderID int
		send         bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic webstore order envelopes",
		Long: `Generate synthetic webstore orders. Envelopes are written to stdout as
newline-delimited JSON unless --send is given, in which case they are
posted to the ingest service as one batch.`,
		Example: `  bagile seed --count 20 > orders.ndjson
  bagile seed --count 100 --send --url http://localhost:8088`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			table, err := opts.trainerTable()
			if err != nil {
				return err
			}
			codes := make([]string, 0, len(table))
			for code := range table {
				codes = append(codes, code)
			}

			gen := seeder.NewGenerator(seeder.Options{
				Seed:         seed,
				TrainerCodes: codes,
				TransferRate: transferRate,
				FirstOrderID: firstOrderID,
			})
			envs, err := gen.Envelopes(count)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !send {
				enc := json.NewEncoder(w)
				for _, env := range envs {
					if err := enc.Encode(env); err != nil {
						return err
					}
				}
				return nil
			}

			if url == "" {
				url = opts.cfg.IngestURL
			}
			resp, err := client.NewIngestClient(url).SendEnvelopes(cmd.Context(), envs)
			if err != nil {
				return err
			}

			if opts.json() {
				return output.JSON(w, resp)
			}
			if resp.Queued > 0 {
				output.Success(w, "queued %d envelopes at %s", resp.Queued, url)
				return nil
			}
			counts := make(map[string]int)
			for _, o := range resp.Outcomes {
				counts[o.Status]++
			}
			output.Success(w, "sent %d envelopes to %s", len(envs), url)
			statuses := make([]string, 0, len(counts))
			for status := range counts {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)
			for _, status := range statuses {
				output.Info(w, "  %s: %d", status, counts[status])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "number of orders")
	cmd.Flags().StringVar(&url, "url", "", "ingest service URL (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	cmd.Flags().Float64Var(&transferRate, "transfer-rate", 0.1, "fraction of orders with a transfer note")
	cmd.Flags().IntVar(&firstOrderID, "first-id", 10000, "first order id")
	cmd.Flags().BoolVar(&send, "send", false, "post the envelopes instead of printing them")
	return cmd
}
