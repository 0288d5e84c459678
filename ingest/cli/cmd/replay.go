package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/pkg/output"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/normalizer"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/validator"
	"github.com/asbrown77/bagile-platform-sub001/ingest/pkg/api"
)

type replayResult struct {
	Status     receiver.Status `json:"status"`
	Source     string          `json:"source"`
	ExternalID string          `json:"externalId,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Records    interface{}     `json:"records,omitempty"`
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	var showRecords bool

	cmd := &cobra.Command{
		Use:   "replay <file|->",
		Short: "Run envelopes through the normalizers without storing anything",
		Long: `Decode envelopes (a JSON object, a JSON array or newline-delimited
JSON) from a file or stdin and report the outcome for each one.`,
		Example: `  bagile replay dlq.ndjson
  bagile seed --count 5 | bagile replay --records -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			envs, err := api.DecodeEnvelopes(body)
			if err != nil {
				return fmt.Errorf("decode envelopes: %w", err)
			}

			resolver, err := opts.resolver()
			if err != nil {
				return err
			}
			recv := receiver.New(
				normalizer.NewRegistry(
					normalizer.NewXero(resolver),
					normalizer.NewWooCommerce(resolver),
					normalizer.NewSchedule(resolver),
				),
				validator.NewChain(validator.BasicValidator{}),
			)

			outcomes, err := recv.ReceiveBatch(cmd.Context(), envs)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.json() {
				results := make([]replayResult, len(outcomes))
				for i, o := range outcomes {
					results[i] = replayResult{Status: o.Status, Source: o.Source, ExternalID: o.ExternalID, Reason: o.Reason()}
					if showRecords && len(o.Records) > 0 {
						results[i].Records = o.Records
					}
				}
				return output.JSON(w, results)
			}

			table := output.NewTable([]string{"SOURCE", "EXTERNAL ID", "STATUS", "RECORDS", "REASON"})
			for _, o := range outcomes {
				table.AddRow([]string{o.Source, o.ExternalID, string(o.Status), strconv.Itoa(len(o.Records)), o.Reason()})
			}
			table.Render(w)

			if showRecords {
				fmt.Fprintln(w)
				records := output.NewTable([]string{"KIND", "ID"})
				for _, o := range outcomes {
					for _, rec := range o.Records {
						records.AddRow([]string{string(rec.Kind()), rec.RecordID()})
					}
				}
				records.Render(w)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRecords, "records", false, "include the produced canonical records")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
