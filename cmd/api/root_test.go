package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"seed"},
		{"user"},
		{"user", "add"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestSeedCommand_Flags(t *testing.T) {
	cmd := newSeedCommand()
	f := cmd.Flags().Lookup("layout")
	require.NotNil(t, f)
	assert.Equal(t, "", f.DefValue)
}

func TestUserAddCommand_Flags(t *testing.T) {
	cmd := newUserAddCommand()
	for _, name := range []string{"username", "name", "pin", "role"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "warehouse", cmd.Flags().Lookup("role").DefValue)
}

func TestUserAddCommand_RequiresFlags(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"user", "add", "--name", "Maria"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
