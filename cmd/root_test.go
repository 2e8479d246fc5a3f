package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"build", "schema", "series", "serve", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "imax", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestSeriesCommand_Flags(t *testing.T) {
	for _, name := range []string{"payload", "x", "y", "sort", "precision", "tp", "hw-only", "connect"} {
		assert.NotNil(t, seriesCmd.Flags().Lookup(name), "series command should have --%s flag", name)
	}
	assert.Equal(t, "all", seriesCmd.Flags().Lookup("precision").DefValue)
}

func TestSchemaCommand_Args(t *testing.T) {
	assert.Error(t, schemaCmd.Args(schemaCmd, []string{"only-one"}))
	assert.NoError(t, schemaCmd.Args(schemaCmd, []string{"in", "out"}))
}
