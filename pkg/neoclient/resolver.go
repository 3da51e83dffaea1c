package neoclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"github.com/nspcc-dev/contract-harness/pkg/registry"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// artifactCacheSize is the number of compiled contracts kept in memory.
const artifactCacheSize = 16

type (
	// Resolver deploys contract instances from compiled NEF files. Code
	// and instances are recorded in the registry if it's given.
	Resolver struct {
		registry     *registry.Registry
		manifestPath string
		log          *zap.Logger
		artifacts    *lru.Cache
	}

	artifact struct {
		nef      nef.File
		manifest []byte
		codeHash string
	}
)

var _ chain.Resolver = (*Resolver)(nil)

// NewResolver creates a Resolver. The manifest is read from manifestPath if
// it's not empty and from the file next to the NEF otherwise
// (counter.nef -> counter.manifest.json).
func NewResolver(reg *registry.Registry, manifestPath string, log *zap.Logger) (*Resolver, error) {
	cache, err := lru.New(artifactCacheSize)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		registry:     reg,
		manifestPath: manifestPath,
		log:          log,
		artifacts:    cache,
	}, nil
}

// ManifestPath returns the default manifest path for the given NEF file.
func ManifestPath(nefPath string) string {
	return strings.TrimSuffix(nefPath, ".nef") + ".manifest.json"
}

// artifactKey identifies a particular version of the NEF file, so that a
// rebuilt contract is reloaded.
func artifactKey(codePath string, fi os.FileInfo) string {
	return fmt.Sprintf("%s:%d:%d", codePath, fi.Size(), fi.ModTime().UnixNano())
}

func (r *Resolver) load(codePath string) (*artifact, error) {
	fi, err := os.Stat(codePath)
	if err != nil {
		return nil, fmt.Errorf("can't read contract code: %w", err)
	}
	key := artifactKey(codePath, fi)
	if a, ok := r.artifacts.Get(key); ok {
		return a.(*artifact), nil
	}
	data, err := os.ReadFile(codePath)
	if err != nil {
		return nil, fmt.Errorf("can't read contract code: %w", err)
	}
	nefFile, err := nef.FileFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("can't parse NEF file %s: %w", codePath, err)
	}
	mPath := r.manifestPath
	if mPath == "" {
		mPath = ManifestPath(codePath)
	}
	mData, err := os.ReadFile(mPath)
	if err != nil {
		return nil, fmt.Errorf("can't read contract manifest: %w", err)
	}
	if err := json.Unmarshal(mData, new(manifest.Manifest)); err != nil {
		return nil, fmt.Errorf("can't parse manifest %s: %w", mPath, err)
	}
	a := &artifact{nef: nefFile, manifest: mData, codeHash: CodeHash(nefFile.Script)}
	r.artifacts.Add(key, a)
	return a, nil
}

// GetOrStoreCodeAndInstantiate implements chain.Resolver. Every message
// produces a contract named after its label, the last instance is returned.
// An instance already deployed with the same code under the same name is
// reused.
func (r *Resolver) GetOrStoreCodeAndInstantiate(ctx context.Context, c chain.Client, codePath string, msgs []chain.InstantiateMsg) (chain.Instance, error) {
	cl, ok := c.(*Client)
	if !ok {
		return chain.Instance{}, chain.ErrUnsupportedClient
	}
	if len(msgs) == 0 {
		return chain.Instance{}, errors.New("no instantiate messages")
	}
	a, err := r.load(codePath)
	if err != nil {
		return chain.Instance{}, err
	}
	network := cl.network.String()
	codeInfo := chain.CodeInfo{CodeID: uint64(a.nef.Checksum), CodeHash: a.codeHash}
	codeInfo.Reused, err = r.storeCode(network, codePath, a)
	if err != nil {
		return chain.Instance{}, err
	}

	var inst chain.Instance
	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return chain.Instance{}, err
		}
		if msgs[i].Sender != "" && msgs[i].Sender != cl.SenderAddress() {
			return chain.Instance{}, fmt.Errorf("instance %q: sender %s doesn't match client account %s",
				msgs[i].Label, msgs[i].Sender, cl.SenderAddress())
		}
		if msgs[i].CodeHash != "" && msgs[i].CodeHash != a.codeHash {
			return chain.Instance{}, fmt.Errorf("instance %q: %w", msgs[i].Label, ErrCodeHashMismatch)
		}
		inst, err = r.instantiate(cl, a, msgs[i], codeInfo)
		if err != nil {
			return chain.Instance{}, fmt.Errorf("instance %q: %w", msgs[i].Label, err)
		}
	}
	return inst, nil
}

// storeCode records the code in the registry, it returns true if the
// code was known before.
func (r *Resolver) storeCode(network string, codePath string, a *artifact) (bool, error) {
	if r.registry == nil {
		return false, nil
	}
	_, err := r.registry.GetCode(network, a.codeHash)
	if err == nil {
		r.log.Debug("reusing known contract code", zap.String("code_hash", a.codeHash))
		return true, nil
	}
	if !errors.Is(err, registry.ErrNotFound) {
		return false, err
	}
	err = r.registry.PutCode(registry.CodeRecord{
		Network:     network,
		CodeHash:    a.codeHash,
		Checksum:    a.nef.Checksum,
		Path:        codePath,
		FirstStored: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("can't store code record: %w", err)
	}
	return false, nil
}

func (r *Resolver) instantiate(cl *Client, a *artifact, msg chain.InstantiateMsg, codeInfo chain.CodeInfo) (chain.Instance, error) {
	m := new(manifest.Manifest)
	if err := json.Unmarshal(a.manifest, m); err != nil {
		return chain.Instance{}, err
	}
	if msg.Label != "" {
		m.Name = msg.Label
	}
	args, err := decodeArgs(msg.InitMsg)
	if err != nil {
		return chain.Instance{}, fmt.Errorf("bad init message: %w", err)
	}

	h := state.CreateContractHash(cl.act.Sender(), a.nef.Checksum, m.Name)
	existing, err := cl.mgmt.GetContract(h)
	if err != nil {
		return chain.Instance{}, fmt.Errorf("can't check contract %s: %w", FormatContract(h), err)
	}
	var txHash string
	switch {
	case existing != nil && existing.NEF.Checksum == a.nef.Checksum:
		deployments.WithLabelValues("reused").Inc()
		r.log.Warn("contract instance already exists, reusing it",
			zap.String("address", FormatContract(h)),
			zap.String("label", m.Name))
	case existing != nil:
		return chain.Instance{}, fmt.Errorf("contract %s already exists with different code", FormatContract(h))
	default:
		var data any
		if len(args) != 0 {
			data = args
		}
		nefFile := a.nef
		tx, vub, err := cl.mgmt.Deploy(&nefFile, m, data)
		aer, err := cl.act.Wait(tx, vub, err)
		if err != nil {
			return chain.Instance{}, fmt.Errorf("deployment failed: %w", err)
		}
		if aer.VMState != vmstate.Halt {
			return chain.Instance{}, fmt.Errorf("deployment %s faulted: %s", tx.StringLE(), aer.FaultException)
		}
		deployments.WithLabelValues("new").Inc()
		txHash = tx.StringLE()
		r.log.Info("contract deployed",
			zap.String("address", FormatContract(h)),
			zap.String("label", m.Name),
			zap.String("tx", txHash),
			zap.Int64("gas", aer.GasConsumed))
	}

	inst := chain.Instance{Address: FormatContract(h), Label: m.Name, CodeInfo: codeInfo}
	if r.registry != nil {
		err = r.registry.AddInstance(registry.InstanceRecord{
			Network:  cl.network.String(),
			Address:  inst.Address,
			CodeHash: codeInfo.CodeHash,
			Label:    inst.Label,
			TxHash:   txHash,
			Deployed: time.Now().UTC(),
		})
		if err != nil {
			return chain.Instance{}, fmt.Errorf("can't store instance record: %w", err)
		}
	}
	return inst, nil
}
