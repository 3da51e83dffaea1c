package app

import (
	"bytes"
	"testing"

	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	config.Version = "0.1.0-test"
	ctl := New()
	out := bytes.NewBuffer(nil)
	ctl.Writer = out
	require.NoError(t, ctl.Run([]string{"harness", "--version"}))
	require.Contains(t, out.String(), "Version: 0.1.0-test")
}

func TestCommands(t *testing.T) {
	ctl := New()
	for _, name := range []string{"run", "count", "increment", "deployments"} {
		require.NotNil(t, ctl.Command(name), name)
	}
}
