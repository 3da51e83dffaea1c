/*
Package registry keeps track of contract code and instances deployed by the
harness, so that code can be reused between runs and stale instances can be
listed and forgotten.
*/
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Key prefixes.
const (
	prefixCode     byte = 0x01
	prefixInstance byte = 0x02
)

// ErrNotFound is returned when there is no requested record.
var ErrNotFound = errors.New("record not found")

// CodeRecord describes stored contract code.
type CodeRecord struct {
	Network     string    `json:"network"`
	CodeHash    string    `json:"code_hash"`
	Checksum    uint32    `json:"checksum"`
	Path        string    `json:"path"`
	FirstStored time.Time `json:"first_stored"`
}

// InstanceRecord describes contract instance.
type InstanceRecord struct {
	Network  string    `json:"network"`
	Address  string    `json:"address"`
	CodeHash string    `json:"code_hash"`
	Label    string    `json:"label"`
	TxHash   string    `json:"tx_hash,omitempty"`
	Deployed time.Time `json:"deployed"`
}

// Registry is a deployed contracts registry over some Store.
type Registry struct {
	store Store
}

// New creates a Registry using the given store.
func New(s Store) *Registry {
	return &Registry{store: s}
}

// Open creates a store using the given configuration and returns a Registry
// over it.
func Open(cfg DBConfiguration) (*Registry, error) {
	s, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

// Close closes the underlying store.
func (r *Registry) Close() error {
	return r.store.Close()
}

func makeKey(prefix byte, parts ...string) []byte {
	key := []byte{prefix}
	for _, p := range parts {
		key = append(key, p...)
		key = append(key, 0)
	}
	return key
}

// PutCode stores (overwrites) the code record.
func (r *Registry) PutCode(rec CodeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Put(makeKey(prefixCode, rec.Network, rec.CodeHash), data)
}

// GetCode returns the code record for the given network and code hash.
func (r *Registry) GetCode(network, codeHash string) (*CodeRecord, error) {
	data, err := r.store.Get(makeKey(prefixCode, network, codeHash))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec := new(CodeRecord)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("corrupted code record %s: %w", codeHash, err)
	}
	return rec, nil
}

// AddInstance stores the instance record.
func (r *Registry) AddInstance(rec InstanceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Put(makeKey(prefixInstance, rec.Network, rec.CodeHash, rec.Address), data)
}

// Instances returns all instances of the given code on the given network.
func (r *Registry) Instances(network, codeHash string) ([]InstanceRecord, error) {
	return r.seekInstances(makeKey(prefixInstance, network, codeHash))
}

// AllInstances returns all instances on the given network or on all networks
// if network is empty.
func (r *Registry) AllInstances(network string) ([]InstanceRecord, error) {
	if network == "" {
		return r.seekInstances([]byte{prefixInstance})
	}
	return r.seekInstances(makeKey(prefixInstance, network))
}

func (r *Registry) seekInstances(prefix []byte) ([]InstanceRecord, error) {
	var (
		res    []InstanceRecord
		decErr error
	)
	err := r.store.Seek(prefix, func(k, v []byte) bool {
		var rec InstanceRecord
		if decErr = json.Unmarshal(v, &rec); decErr != nil {
			decErr = fmt.Errorf("corrupted instance record %q: %w", k, decErr)
			return false
		}
		res = append(res, rec)
		return true
	})
	if err == nil {
		err = decErr
	}
	return res, err
}

// Forget removes the code record and all of its instances, it returns the
// number of instances removed.
func (r *Registry) Forget(network, codeHash string) (int, error) {
	var keys [][]byte
	err := r.store.Seek(makeKey(prefixInstance, network, codeHash), func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	})
	if err != nil {
		return 0, err
	}
	codeKey := makeKey(prefixCode, network, codeHash)
	if _, err := r.store.Get(codeKey); err != nil && len(keys) == 0 {
		if errors.Is(err, ErrKeyNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	for _, k := range keys {
		if err := r.store.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), r.store.Delete(codeKey)
}
