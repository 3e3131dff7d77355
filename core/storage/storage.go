// Package storage provides the persistent key-value state for the ledger
// node, backed by LevelDB with optional AES-GCM encryption at rest.
package storage

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrNotFound is returned by Get when no value exists for a key.
var ErrNotFound = errors.New("storage: key not found")

// Backend abstracts the persistent key-value store the ledger state is
// written to. The LevelDB Storage below is the production implementation;
// tests may substitute in-memory maps.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Has(key string) (bool, error)
}

type Storage struct {
	db     *leveldb.DB
	cipher *dek
}

// Open opens (or creates) a LevelDB database at path. When the MEDLEDGER_DEK
// environment variable holds a base64-encoded 32-byte key, all values are
// encrypted at rest with AES-256-GCM.
func Open(path string) (*Storage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	cipher, err := dekFromEnv()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Storage{db: db, cipher: cipher}, nil
}

func (s *Storage) Get(key string) ([]byte, error) {
	val, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.cipher != nil {
		return s.cipher.open(val)
	}
	return val, nil
}

func (s *Storage) Put(key string, value []byte) error {
	if s.cipher != nil {
		enc, err := s.cipher.seal(value)
		if err != nil {
			return err
		}
		value = enc
	}
	return s.db.Put([]byte(key), value, nil)
}

func (s *Storage) Has(key string) (bool, error) {
	return s.db.Has([]byte(key), nil)
}

func (s *Storage) Close() error {
	return s.db.Close()
}
