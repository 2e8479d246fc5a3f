package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/denosys/InferenceMAX/internal/config"
	"github.com/denosys/InferenceMAX/internal/model"
	"github.com/denosys/InferenceMAX/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the payload, schema pool and diagnostics from the input directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if v, _ := cmd.Flags().GetString("input"); v != "" {
			cfg.Build.InputDir = v
		}
		if v, _ := cmd.Flags().GetString("out"); v != "" {
			cfg.Build.OutDir = v
		}
		if cmd.Flags().Changed("threshold") {
			cfg.Build.EmbedThreshold, _ = cmd.Flags().GetInt("threshold")
		}
		return runBuild(ctx, cfg, os.Stdout)
	},
}

func runBuild(ctx context.Context, c *config.Config, out io.Writer) error {
	n, table, err := initNormalizer(c)
	if err != nil {
		return err
	}
	st, err := initStore(ctx, c)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
	}

	opts := pipeline.Options{
		InputDir:   c.Build.InputDir,
		OutDir:     c.Build.OutDir,
		Threshold:  c.Build.EmbedThreshold,
		ExampleCap: c.Build.ExampleCap,
		Workers:    c.Build.ParseWorkers,
		Normalizer: n,
		Table:      table,
		Store:      st,
	}

	res, err := pipeline.New(opts).Build(ctx)
	if err != nil {
		return err
	}

	eager := 0
	for _, e := range res.Payload.Entries {
		if e.Tier == model.TierEager {
			eager++
		}
	}
	_, _ = fmt.Fprintf(out, "datasets: %d (%d eager, %d deferred)\n", len(res.Datasets), eager, len(res.Datasets)-eager)
	_, _ = fmt.Fprintf(out, "schemas:  %d\n", len(res.Pool.Pool))
	_, _ = fmt.Fprintf(out, "records:  %d\n", res.Run.Records())
	_, _ = fmt.Fprintf(out, "skipped:  %d\n", len(res.Diagnostics.Failures))
	_, _ = fmt.Fprintf(out, "written:  %d artifacts to %s\n", len(res.Written), c.Build.OutDir)
	return nil
}

func init() {
	buildCmd.Flags().String("input", "", "input directory (default from config)")
	buildCmd.Flags().String("out", "", "output directory (default from config)")
	buildCmd.Flags().Int("threshold", 0, "largest record count embedded in the payload (default from config)")
	rootCmd.AddCommand(buildCmd)
}
