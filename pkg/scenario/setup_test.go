package scenario

import (
	"testing"

	"github.com/nspcc-dev/contract-harness/internal/testchain"
	"github.com/nspcc-dev/contract-harness/pkg/config"
	"github.com/nspcc-dev/contract-harness/pkg/neoclient"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewSetup(t *testing.T) {
	cfg := config.Default()
	cfg.Contract.Path = "/opt/counter.nef"
	cfg.Contract.InitialCount = 7
	cfg.Faucet.WIF = testchain.WIF(0)

	s, err := NewSetup(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, cfg.Network.Endpoint, s.Network.Endpoint)
	require.Equal(t, "privnet", s.Network.ChainID)
	require.Equal(t, "/opt/counter.nef", s.CodePath)
	require.JSONEq(t, `{"count": 7}`, string(s.InitMsg))
	require.Equal(t, "My Counter", s.LabelPrefix)
	require.EqualValues(t, 100_000_000, s.TargetBalance)

	conn, ok := s.Connector.(*neoclient.Connector)
	require.True(t, ok)
	require.EqualValues(t, 100, conn.GasScale)
	require.Equal(t, cfg.Network.RequestTimeout, conn.RequestTimeout)

	t.Run("no faucet", func(t *testing.T) {
		cfg := config.Default()
		_, err := NewSetup(cfg, nil, nil)
		require.ErrorIs(t, err, neoclient.ErrNoFaucet)

		cfg.Faucet.TargetAmount = 0
		_, err = NewSetup(cfg, nil, nil)
		require.NoError(t, err)
	})
}
