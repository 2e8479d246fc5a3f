package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/denosys/InferenceMAX/internal/pipeline"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <input-dir> <output-dir>",
	Short: "Write a compact schema for every JSON file in a directory",
	Long:  "Infers the schema of each *.json file from its raw records and writes {\"schema\": ...} under the same name in the output directory.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		exampleCap, _ := cmd.Flags().GetInt("example-cap")
		if exampleCap <= 0 {
			exampleCap = cfg.Build.ExampleCap
		}

		res, err := pipeline.CompactSchemas(args[0], args[1], exampleCap)
		if err != nil {
			return err
		}
		for _, name := range res.Written {
			_, _ = fmt.Fprintf(os.Stdout, "wrote %s\n", name)
		}
		for _, name := range res.Failed {
			_, _ = fmt.Fprintf(os.Stderr, "failed %s\n", name)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().Int("example-cap", 0, "examples kept per field (default from config)")
	rootCmd.AddCommand(schemaCmd)
}
