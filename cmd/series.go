package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/denosys/InferenceMAX/internal/config"
	"github.com/denosys/InferenceMAX/internal/series"
)

var seriesCmd = &cobra.Command{
	Use:   "series <dataset>",
	Short: "Print the chart series of one dataset as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		payloadPath, _ := f.GetString("payload")
		q := series.Query{}
		q.XField, _ = f.GetString("x")
		q.YField, _ = f.GetString("y")
		q.SortField, _ = f.GetString("sort")
		q.Precision, _ = f.GetString("precision")
		q.Parallelism, _ = f.GetString("tp")
		q.HardwareOnly, _ = f.GetBool("hw-only")
		q.Connect, _ = f.GetBool("connect")

		return runSeries(cmd.Context(), cfg, payloadPath, args[0], q, os.Stdout)
	},
}

func runSeries(ctx context.Context, c *config.Config, payloadPath, dataset string, q series.Query, out io.Writer) error {
	p, r, err := initResolver(c, payloadPath)
	if err != nil {
		return err
	}
	e, ok := p.Entry(dataset)
	if !ok {
		return eris.Errorf("series: unknown dataset %q", dataset)
	}

	s := series.Build(r.Resolve(ctx, e), q)
	if s == nil {
		s = []series.Series{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func init() {
	seriesCmd.Flags().String("payload", "", "payload.json to read (default <out_dir>/payload.json)")
	seriesCmd.Flags().String("x", "", "x axis field (default: the sort field)")
	seriesCmd.Flags().String("y", "", "y axis field (default: auto-picked metric)")
	seriesCmd.Flags().String("sort", "", "sort field (default concurrency)")
	seriesCmd.Flags().String("precision", series.All, "precision filter")
	seriesCmd.Flags().String("tp", series.All, "parallelism filter")
	seriesCmd.Flags().Bool("hw-only", false, "group by hardware only")
	seriesCmd.Flags().Bool("connect", false, "connect points with lines")
	rootCmd.AddCommand(seriesCmd)
}
