// Package main provides the Ember ML Framework CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ember-ml/ember/internal/backend/cpu"
	"github.com/ember-ml/ember/internal/bench"
)

const version = "v0.1.0-dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ember",
		Short:         "Ember ML Framework",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(newVersionCmd(), newBenchCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Ember ML Framework %s\n", version)
		},
	}
}

func newBenchCmd() *cobra.Command {
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Run benchmarks",
	}

	var (
		configPath string
		tracePath  string
		reps       int
	)
	conv := &cobra.Command{
		Use:   "conv",
		Short: "Benchmark conv2d with contiguous vs channels-last inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := bench.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = bench.LoadConfig(configPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("reps") {
				cfg.Reps = reps
			}

			slog.Info("running conv2d layout benchmark",
				"input", cfg.InputShape, "weight", cfg.WeightShape, "reps", cfg.Reps)

			res, err := bench.RunConv(cpu.New(), cfg)
			if err != nil {
				return err
			}
			bench.WriteReport(cmd.OutOrStdout(), res)

			if tracePath != "" {
				if err := bench.ExportTrace(tracePath, res); err != nil {
					return err
				}
				slog.Info("wrote chrome trace", "path", tracePath)
			}
			return nil
		},
	}
	conv.Flags().StringVar(&configPath, "config", "", "path to a YAML benchmark config")
	conv.Flags().StringVar(&tracePath, "trace", "", "write per-iteration timings as a chrome trace")
	conv.Flags().IntVar(&reps, "reps", 0, "override the number of timed iterations")

	benchCmd.AddCommand(conv)
	return benchCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
