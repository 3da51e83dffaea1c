package neoclient

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/contract-harness/internal/fakechain"
	"github.com/nspcc-dev/contract-harness/internal/testchain"
	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"github.com/nspcc-dev/contract-harness/pkg/registry"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// writeArtifacts saves a NEF file and its manifest into the dir, it returns
// NEF path.
func writeArtifacts(t *testing.T, dir string, script []byte) (string, *nef.File) {
	nefFile, err := nef.NewFile(script)
	require.NoError(t, err)
	data, err := nefFile.Bytes()
	require.NoError(t, err)
	nefPath := filepath.Join(dir, "counter.nef")
	require.NoError(t, os.WriteFile(nefPath, data, 0o644))

	m, err := json.Marshal(manifest.DefaultManifest("counter"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ManifestPath(nefPath), m, 0o644))
	return nefPath, nefFile
}

func newTestResolver(t *testing.T) (*Resolver, *registry.Registry) {
	reg, err := registry.Open(registry.DBConfiguration{Type: registry.InMemoryDB})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, reg.Close()) })
	r, err := NewResolver(reg, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	return r, reg
}

func TestManifestPath(t *testing.T) {
	require.Equal(t, "dir/counter.manifest.json", ManifestPath("dir/counter.nef"))
	require.Equal(t, "counter.bin.manifest.json", ManifestPath("counter.bin"))
}

func TestResolverInstantiate(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	nefPath, nefFile := writeArtifacts(t, t.TempDir(), testScript)
	r, reg := newTestResolver(t)

	inst, err := r.GetOrStoreCodeAndInstantiate(ctx, c.Client, nefPath, []chain.InstantiateMsg{{
		Sender:  c.SenderAddress(),
		InitMsg: []byte(`{"count": 4}`),
		Label:   "My Counter 1",
	}})
	require.NoError(t, err)

	expected := state.CreateContractHash(c.act.sender, nefFile.Checksum, "My Counter 1")
	require.Equal(t, FormatContract(expected), inst.Address)
	require.Equal(t, "My Counter 1", inst.Label)
	require.Equal(t, CodeHash(testScript), inst.CodeInfo.CodeHash)
	require.EqualValues(t, nefFile.Checksum, inst.CodeInfo.CodeID)
	require.False(t, inst.CodeInfo.Reused)

	require.Equal(t, []any{[]any{int64(4)}}, c.mgmt.deployed)
	require.Equal(t, "My Counter 1", c.mgmt.contracts[expected].Manifest.Name)

	code, err := reg.GetCode(c.Network().String(), inst.CodeInfo.CodeHash)
	require.NoError(t, err)
	require.Equal(t, nefPath, code.Path)
	require.Equal(t, nefFile.Checksum, code.Checksum)

	// The same code is reused for the new instance.
	inst2, err := r.GetOrStoreCodeAndInstantiate(ctx, c.Client, nefPath, []chain.InstantiateMsg{{
		InitMsg: []byte(`{"count": 4}`),
		Label:   "My Counter 2",
	}})
	require.NoError(t, err)
	require.True(t, inst2.CodeInfo.Reused)
	require.NotEqual(t, inst.Address, inst2.Address)
	require.Len(t, c.mgmt.deployed, 2)

	insts, err := reg.Instances(c.Network().String(), inst.CodeInfo.CodeHash)
	require.NoError(t, err)
	require.Len(t, insts, 2)

	// Existing instance with the same label is reused, not redeployed.
	inst3, err := r.GetOrStoreCodeAndInstantiate(ctx, c.Client, nefPath, []chain.InstantiateMsg{{
		InitMsg: []byte(`{"count": 4}`),
		Label:   "My Counter 2",
	}})
	require.NoError(t, err)
	require.Equal(t, inst2.Address, inst3.Address)
	require.Len(t, c.mgmt.deployed, 2)
}

func TestResolverBatch(t *testing.T) {
	c := newTestClient(t)
	nefPath, _ := writeArtifacts(t, t.TempDir(), testScript)
	r, err := NewResolver(nil, "", nil)
	require.NoError(t, err)

	inst, err := r.GetOrStoreCodeAndInstantiate(context.Background(), c.Client, nefPath, []chain.InstantiateMsg{
		{InitMsg: []byte(`{"count": 1}`), Label: "a"},
		{Label: "b"},
	})
	require.NoError(t, err)
	require.Equal(t, "b", inst.Label)
	require.False(t, inst.CodeInfo.Reused)
	require.Equal(t, []any{[]any{int64(1)}, nil}, c.mgmt.deployed)
}

func TestResolverManifestOverride(t *testing.T) {
	dir := t.TempDir()
	c := newTestClient(t)
	nefPath, _ := writeArtifacts(t, dir, testScript)
	custom := filepath.Join(dir, "custom.json")
	require.NoError(t, os.Rename(ManifestPath(nefPath), custom))

	r, err := NewResolver(nil, custom, nil)
	require.NoError(t, err)
	_, err = r.GetOrStoreCodeAndInstantiate(context.Background(), c.Client, nefPath, []chain.InstantiateMsg{{Label: "x"}})
	require.NoError(t, err)

	r, err = NewResolver(nil, "", nil)
	require.NoError(t, err)
	_, err = r.GetOrStoreCodeAndInstantiate(context.Background(), c.Client, nefPath, []chain.InstantiateMsg{{Label: "y"}})
	require.Error(t, err)
}

func TestResolverCachesArtifacts(t *testing.T) {
	c := newTestClient(t)
	nefPath, _ := writeArtifacts(t, t.TempDir(), testScript)
	r, _ := newTestResolver(t)

	_, err := r.GetOrStoreCodeAndInstantiate(context.Background(), c.Client, nefPath, []chain.InstantiateMsg{{Label: "a"}})
	require.NoError(t, err)
	first, err := r.load(nefPath)
	require.NoError(t, err)
	again, err := r.load(nefPath)
	require.NoError(t, err)
	require.Same(t, first, again)
	require.Equal(t, 1, r.artifacts.Len())

	t.Run("rebuilt", func(t *testing.T) {
		rebuilt := []byte{0x12, 0x40}
		_, _ = writeArtifacts(t, filepath.Dir(nefPath), rebuilt)
		later := time.Now().Add(time.Minute)
		require.NoError(t, os.Chtimes(nefPath, later, later))

		a, err := r.load(nefPath)
		require.NoError(t, err)
		require.NotSame(t, first, a)
		require.Equal(t, CodeHash(rebuilt), a.codeHash)
	})
	t.Run("removed", func(t *testing.T) {
		require.NoError(t, os.Remove(nefPath))
		_, err := r.load(nefPath)
		require.ErrorContains(t, err, "can't read contract code")
	})
}

func TestResolverFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	nefPath, nefFile := writeArtifacts(t, dir, testScript)
	msgs := []chain.InstantiateMsg{{InitMsg: []byte(`{"count": 4}`), Label: "c"}}

	t.Run("unsupported client", func(t *testing.T) {
		r, _ := newTestResolver(t)
		fc := fakechain.NewFakeChain(testchain.Address(0))
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, fc, nefPath, msgs)
		require.ErrorIs(t, err, chain.ErrUnsupportedClient)
	})
	t.Run("no messages", func(t *testing.T) {
		r, _ := newTestResolver(t)
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, newTestClient(t).Client, nefPath, nil)
		require.Error(t, err)
	})
	t.Run("missing code", func(t *testing.T) {
		r, _ := newTestResolver(t)
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, newTestClient(t).Client, filepath.Join(dir, "none.nef"), msgs)
		require.Error(t, err)
	})
	t.Run("bad code", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.nef")
		require.NoError(t, os.WriteFile(bad, []byte("not a nef"), 0o644))
		r, _ := newTestResolver(t)
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, newTestClient(t).Client, bad, msgs)
		require.Error(t, err)
	})
	t.Run("bad init message", func(t *testing.T) {
		r, _ := newTestResolver(t)
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, newTestClient(t).Client, nefPath, []chain.InstantiateMsg{{
			InitMsg: []byte(`{"count": 4.5}`),
		}})
		require.Error(t, err)
	})
	t.Run("foreign sender", func(t *testing.T) {
		r, _ := newTestResolver(t)
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, newTestClient(t).Client, nefPath, []chain.InstantiateMsg{{
			Sender: testchain.Address(2),
		}})
		require.Error(t, err)
	})
	t.Run("wrong code hash", func(t *testing.T) {
		r, _ := newTestResolver(t)
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, newTestClient(t).Client, nefPath, []chain.InstantiateMsg{{
			CodeHash: CodeHash([]byte{0x40}),
		}})
		require.ErrorIs(t, err, ErrCodeHashMismatch)
	})
	t.Run("name taken by other code", func(t *testing.T) {
		r, _ := newTestResolver(t)
		c := newTestClient(t)
		h := state.CreateContractHash(c.act.sender, nefFile.Checksum, "c")
		c.putContract(h, []byte{0x40})
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, c.Client, nefPath, msgs)
		require.ErrorContains(t, err, "different code")
	})
	t.Run("deploy failure", func(t *testing.T) {
		r, _ := newTestResolver(t)
		c := newTestClient(t)
		c.mgmt.deployErr = errors.New("insufficient GAS")
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, c.Client, nefPath, msgs)
		require.ErrorIs(t, err, c.mgmt.deployErr)
	})
	t.Run("deploy fault", func(t *testing.T) {
		r, _ := newTestResolver(t)
		c := newTestClient(t)
		c.act.vmState = vmstate.Fault
		c.act.fault = "_deploy failed"
		_, err := r.GetOrStoreCodeAndInstantiate(ctx, c.Client, nefPath, msgs)
		require.ErrorContains(t, err, "_deploy failed")
	})
	t.Run("cancelled", func(t *testing.T) {
		r, _ := newTestResolver(t)
		c := newTestClient(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.GetOrStoreCodeAndInstantiate(cctx, c.Client, nefPath, msgs)
		require.ErrorIs(t, err, context.Canceled)
		require.Empty(t, c.mgmt.deployed)
	})
}
