// Command casegen writes synthetic dashboard fixtures and verifies a running
// dashboard against them.
//
//	casegen generate --records 5000 --out testdata/generated
//	casegen verify --url http://localhost:3000
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/covidash/internal/casegen"
	"github.com/okian/covidash/pkg/logger"
)

var (
	logFormat string
	verbose   bool

	genCfg    = casegen.DefaultGenerateConfig("generated")
	startDate string

	verifyCfg = casegen.VerifyConfig{
		BaseURL: casegen.DefaultBaseURL,
		Timeout: casegen.DefaultTimeout,
		Workers: casegen.DefaultWorkers,
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "casegen",
		Short:        "Synthetic fixtures and invariant checks for the Covid dashboard",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			if verbose {
				return logger.SetLevelString("debug")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatText, "Log format: text or json")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newGenerateCmd(), newVerifyCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write cases.csv and boundaries.geojson",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := genCfg
			if startDate != "" {
				start, err := time.Parse("2006-01-02", startDate)
				if err != nil {
					return err
				}
				cfg.Start = start
			}
			cfg.Logger = logger.Get()
			report, err := casegen.Generate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&genCfg.Records, "records", "n", genCfg.Records, "Number of case rows")
	f.IntVar(&genCfg.Regions, "regions", genCfg.Regions, "Number of distinct FSAs")
	f.IntVar(&genCfg.Days, "days", genCfg.Days, "Number of days the reported dates span")
	f.StringVar(&startDate, "start", genCfg.Start.Format("2006-01-02"), "First reported date (YYYY-MM-DD)")
	f.Uint64Var(&genCfg.Seed, "seed", genCfg.Seed, "Random seed")
	f.StringVarP(&genCfg.OutDir, "out", "o", genCfg.OutDir, "Output directory")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a running dashboard's outputs for every selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := verifyCfg
			cfg.Logger = logger.Get()
			report, err := casegen.Verify(cmd.Context(), cfg)
			if perr := printJSON(cmd, report); perr != nil && err == nil {
				return perr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&verifyCfg.BaseURL, "url", verifyCfg.BaseURL, "Base URL of the dashboard")
	f.DurationVar(&verifyCfg.Timeout, "timeout", verifyCfg.Timeout, "Per request timeout")
	f.IntVar(&verifyCfg.Workers, "workers", verifyCfg.Workers, "Concurrent requests")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
