package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "lineage", cmd.Use)
	assert.Contains(t, cmd.Long, "provenance")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"object", "create"},
		{"object", "lookup"},
		{"object", "lookup-all"},
		{"object", "info"},
		{"object", "list"},
		{"object", "file"},
		{"version", "get"},
		{"version", "new"},
		{"version", "info"},
		{"flow"},
		{"disclose"},
		{"has-ancestor"},
		{"ancestry"},
		{"property", "add"},
		{"property", "get"},
		{"property", "find"},
		{"session", "info"},
		{"import"},
		{"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "backend"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue)
	}
}

func TestAncestryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	ancestryCmd, _, err := cmd.Find([]string{"ancestry"})
	require.NoError(t, err)

	for _, name := range []string{"descendants", "no-versions", "no-data", "no-control"} {
		flag := ancestryCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "false", flag.DefValue)
	}
	depth := ancestryCmd.Flags().Lookup("depth")
	require.NotNil(t, depth)
	assert.Equal(t, "1", depth.DefValue)
}

func TestParseFileMode(t *testing.T) {
	for _, s := range []string{"lookup", "create-if-missing", "always-create"} {
		m, err := parseFileMode(s)
		require.NoError(t, err)
		assert.Equal(t, s, m.String())
	}
	_, err := parseFileMode("sometimes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
