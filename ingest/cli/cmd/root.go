package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/internal/config"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type rootOptions struct {
	cfgFile      string
	output       string
	trainersFile string
	cfg          *config.Config
}

// NewRootCmd builds the bagile command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "bagile",
		Short: "Bagile ingestion CLI",
		Long: `bagile is the command-line companion to the ingest service.

Classify transfer notes, resolve trainers from course SKUs, inspect the
accounting capture filter, replay envelopes through the normalizers and
seed a running service with synthetic webstore orders.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != formatTable && opts.output != formatJSON {
				return fmt.Errorf("unsupported output format %q", opts.output)
			}
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: $HOME/.bagile/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.output, "output", formatTable, "output format: table, json")
	rootCmd.PersistentFlags().StringVar(&opts.trainersFile, "trainers-file", "", "YAML trainer table merged over the built-in one")

	rootCmd.AddCommand(
		newClassifyCmd(opts),
		newTrainerCmd(opts),
		newFilterCmd(opts),
		newReplayCmd(opts),
		newSeedCmd(opts),
	)

	return rootCmd
}

func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

// trainerTable merges the built-in trainers with the config file table and
// the trainers file, later sources winning.
func (o *rootOptions) trainerTable() (map[string]string, error) {
	tables := []map[string]string{skus.DefaultTrainers()}
	if o.cfg != nil {
		tables = append(tables, o.cfg.Trainers)
	}

	path := o.trainersFile
	if path == "" && o.cfg != nil {
		path = o.cfg.TrainersFile
	}
	if path != "" {
		table, err := skus.LoadTable(path)
		if err != nil {
			return nil, fmt.Errorf("load trainers: %w", err)
		}
		tables = append(tables, table)
	}

	return skus.Merge(tables...), nil
}

func (o *rootOptions) resolver() (*skus.Resolver, error) {
	table, err := o.trainerTable()
	if err != nil {
		return nil, err
	}
	return skus.NewResolver(table), nil
}

func (o *rootOptions) json() bool {
	return o.output == formatJSON
}
