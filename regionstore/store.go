// Package regionstore persists formatted tree regions in LevelDB so a tree
// can be reopened by a later process.
package regionstore

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNotFound = errors.New("regionstore: no region is stored for the tree id")
	ErrBadKey   = errors.New("regionstore: stored key is not a region key")
)

var regionPrefix = []byte("region/")

// Store holds one region per tree id. Regions are written whole; the store
// does not track partial updates.
type Store struct {
	db  *leveldb.DB
	log logger.Logger
}

// Open opens or creates the database at path. An empty path opens an in
// memory database.
func Open(path string, log logger.Logger) (*Store, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open region store %q: %w", path, err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func regionKey(id uuid.UUID) []byte {
	return append(bytes.Clone(regionPrefix), id[:]...)
}

// Put replaces the region stored for id.
func (s *Store) Put(id uuid.UUID, region []byte) error {
	if err := s.db.Put(regionKey(id), region, nil); err != nil {
		return fmt.Errorf("put region %s: %w", id, err)
	}
	if s.log != nil {
		s.log.Debugf("stored region %s: %d bytes", id, len(region))
	}
	return nil
}

// Get returns a copy of the region stored for id.
func (s *Store) Get(id uuid.UUID) ([]byte, error) {
	region, err := s.db.Get(regionKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get region %s: %w", id, err)
	}
	return region, nil
}

func (s *Store) Delete(id uuid.UUID) error {
	return s.db.Delete(regionKey(id), nil)
}

// IDs lists the stored tree ids in key order.
func (s *Store) IDs() ([]uuid.UUID, error) {
	iter := s.db.NewIterator(util.BytesPrefix(regionPrefix), nil)
	defer iter.Release()

	var ids []uuid.UUID
	for iter.Next() {
		id, err := uuid.FromBytes(iter.Key()[len(regionPrefix):])
		if err != nil {
			return nil, fmt.Errorf("%w: %x", ErrBadKey, iter.Key())
		}
		ids = append(ids, id)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return ids, nil
}
