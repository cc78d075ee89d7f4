package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmdRegistersAllSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"search", "ask", "agent-ask", "eval-run", "ingest"} {
		assert.True(t, names[want], "expected subcommand %q to be registered", want)
	}
}

func TestParseKsParsesCommaSeparatedCutoffs(t *testing.T) {
	ks, err := parseKs("1,3, 5 ,10")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5, 10}, ks)
}

func TestParseKsRejectsNonNumeric(t *testing.T) {
	_, err := parseKs("1,x,5")
	require.Error(t, err)
}
