package registry

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned by Store implementations when a certain key is
// not found.
var ErrKeyNotFound = errors.New("key not found")

// Store is a simple key-value storage used by the registry.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// Seek calls f for every key with the given prefix in ascending order
	// until f returns false. Keys and values must not be retained by f.
	Seek(prefix []byte, f func(k, v []byte) bool) error
	Close() error
}

// Store types supported by NewStore.
const (
	BoltDB     = "boltdb"
	LevelDB    = "leveldb"
	InMemoryDB = "inmemory"
)

type (
	// DBConfiguration describes registry storage. Supported types: BoltDB,
	// LevelDB and InMemoryDB.
	DBConfiguration struct {
		Type           string         `yaml:"Type"`
		LevelDBOptions LevelDBOptions `yaml:"LevelDBOptions"`
		BoltDBOptions  BoltDBOptions  `yaml:"BoltDBOptions"`
	}
	// LevelDBOptions configuration for LevelDB.
	LevelDBOptions struct {
		DataDirectoryPath string `yaml:"DataDirectoryPath"`
		ReadOnly          bool   `yaml:"ReadOnly"`
	}
	// BoltDBOptions configuration for BoltDB.
	BoltDBOptions struct {
		FilePath string `yaml:"FilePath"`
		ReadOnly bool   `yaml:"ReadOnly"`
	}
)

// NewStore creates a store according to the given configuration.
func NewStore(cfg DBConfiguration) (Store, error) {
	switch cfg.Type {
	case BoltDB:
		return NewBoltDBStore(cfg.BoltDBOptions)
	case LevelDB:
		return NewLevelDBStore(cfg.LevelDBOptions)
	case InMemoryDB:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown registry storage type: %q", cfg.Type)
	}
}
