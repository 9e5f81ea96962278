// Package store persists last-known state on disk so a restarted client
// shows data before the first poll completes. Values are JSON blobs in an
// embedded badger database; the backend remains authoritative and every
// poll overwrites what is here.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"buspulse/internal/model"
)

type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func snapshotKey(routeID int, date string) []byte {
	return []byte(fmt.Sprintf("snapshot/%d/%s", routeID, date))
}

// SaveSnapshot persists the schedule list for one route and day.
func (s *Store) SaveSnapshot(routeID int, date string, schedules []model.Schedule) error {
	value, err := json.Marshal(schedules)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(routeID, date), value)
	})
}

// LoadSnapshot returns the persisted schedule list, or nil when none was
// saved for that route and day.
func (s *Store) LoadSnapshot(routeID int, date string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(routeID, date))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &schedules)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return schedules, nil
}

func preInformKey(id int) []byte {
	return []byte(fmt.Sprintf("preinform/%d", id))
}

// SavePreInform keeps a local receipt of a submitted pre-inform.
func (s *Store) SavePreInform(p model.PreInform) error {
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pre-inform: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(preInformKey(p.ID), value)
	})
}

// DeletePreInform drops a receipt, e.g. after cancellation.
func (s *Store) DeletePreInform(id int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(preInformKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// ListPreInforms returns all locally kept receipts.
func (s *Store) ListPreInforms() ([]model.PreInform, error) {
	var out []model.PreInform
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("preinform/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var p model.PreInform
				if err := json.Unmarshal(val, &p); err != nil {
					return err
				}
				out = append(out, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pre-informs: %w", err)
	}
	return out, nil
}
