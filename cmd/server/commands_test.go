package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, version+"\n", execute(t, "version"))
}

func TestFlowsCommand(t *testing.T) {
	out := execute(t, "flows")
	assert.Contains(t, out, "learners")
	assert.Contains(t, out, "incoming")
	assert.Contains(t, out, "date_debut_accueil")
}

func TestServeRejectsInvalidPort(t *testing.T) {
	rootCmd.SetArgs([]string{"serve", "--port", "70000"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}
