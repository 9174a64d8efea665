package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"serve", "explore", "shortlist", "candidate", "history", "report", "admin", "status"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "nobel-dash", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"backend", "routes", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	assert.True(t, rootCmd.SilenceUsage)
	assert.NotEmpty(t, rootCmd.Version)
}

func TestApplyRootFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	rootFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--backend", "http://other.test/api/v1", "--log-level", "debug"}))

	c := testConfig()
	c.Log.Level = "info"
	applyRootFlags(cmd, c)
	assert.Equal(t, "http://other.test/api/v1", c.API.BaseURL)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "v1", c.API.Routes, "unset flags leave config alone")
}

func TestAdminCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range adminCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["etl"])
	assert.True(t, names["train"])
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestFilterFlags(t *testing.T) {
	for _, c := range []string{"shortlist", "history", "report"} {
		cmd, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err)
		for _, name := range []string{"field", "horizon"} {
			assert.NotNil(t, cmd.Flags().Lookup(name), "%s should have --%s flag", c, name)
		}
	}
}

func TestShortlistCommand_RecordFlag(t *testing.T) {
	flag := shortlistCmd.Flags().Lookup("record")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestReportCommand_Flags(t *testing.T) {
	flag := reportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "csv", flag.DefValue)
	assert.NotNil(t, reportCmd.Flags().Lookup("out"))
	assert.NotNil(t, reportCmd.Flags().Lookup("xlsx"))
}

func TestCandidateCommand_Args(t *testing.T) {
	assert.Error(t, candidateCmd.Args(candidateCmd, nil))
	assert.NoError(t, candidateCmd.Args(candidateCmd, []string{"7"}))
}
