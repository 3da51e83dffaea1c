package harness

import (
	"errors"
	"strings"
	"testing"

	"github.com/nspcc-dev/contract-harness/internal/fakechain"
	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"github.com/stretchr/testify/require"
)

func TestSetupRun(t *testing.T) {
	fc := fakechain.NewFakeChain(testSender)
	var got []chain.InstantiateMsg
	fc.ResolveF = func(msgs []chain.InstantiateMsg) error {
		got = msgs
		return nil
	}
	s := newTestSetup(t, fc)

	env, err := s.Run(testContext(t))
	require.NoError(t, err)
	require.Same(t, chain.Client(fc), env.Client)
	require.Equal(t, fakechain.CodeHash, env.Contract.CodeHash)
	require.EqualValues(t, 100_000_000, fc.Balance())

	require.Len(t, got, 1)
	require.Equal(t, testSender, got[0].Sender)
	require.JSONEq(t, `{"count": 4}`, string(got[0].InitMsg))
	require.True(t, strings.HasPrefix(got[0].Label, "My Counter "))
	require.Nil(t, got[0].CodeID)

	// Every run gets a new label.
	_, err = s.Run(testContext(t))
	require.NoError(t, err)
	require.Len(t, got, 1)
	first := got[0].Label
	_, err = s.Run(testContext(t))
	require.NoError(t, err)
	require.NotEqual(t, first, got[0].Label)
	require.Zero(t, fc.Closes.Load())
}

func TestSetupStages(t *testing.T) {
	errTest := errors.New("boom")
	testCases := map[string]struct {
		prepare func(fc *fakechain.FakeChain)
		stage   Stage
		closes  int64
	}{
		"connect": {
			prepare: func(fc *fakechain.FakeChain) {
				fc.ConnectF = func(chain.NetworkInfo) error { return errTest }
			},
			stage: StageConnect,
		},
		"fund": {
			prepare: func(fc *fakechain.FakeChain) {
				fc.FundF = func(int64) error { return errTest }
			},
			stage:  StageFund,
			closes: 1,
		},
		"deploy": {
			prepare: func(fc *fakechain.FakeChain) {
				fc.ResolveF = func([]chain.InstantiateMsg) error { return errTest }
			},
			stage:  StageDeploy,
			closes: 1,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			fc := fakechain.NewFakeChain(testSender)
			tc.prepare(fc)
			env, err := newTestSetup(t, fc).Run(testContext(t))
			require.Nil(t, env)
			require.ErrorIs(t, err, errTest)
			var se *SetupError
			require.ErrorAs(t, err, &se)
			require.Equal(t, tc.stage, se.Stage)
			require.Contains(t, err.Error(), string(tc.stage))
			// A client connected before the failure is not leaked.
			require.Equal(t, tc.closes, fc.Closes.Load())
		})
	}

	t.Run("missing collaborators", func(t *testing.T) {
		_, err := (&Setup{}).Run(testContext(t))
		var se *SetupError
		require.ErrorAs(t, err, &se)
		require.Equal(t, StageConnect, se.Stage)
	})
}
