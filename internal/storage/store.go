// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

const (
	keyPrefix = "killmail:"

	// DefaultRetention applies when the configured retention is zero.
	DefaultRetention = 168 * time.Hour

	// DefaultGCInterval applies when the configured GC interval is zero.
	DefaultGCInterval = 10 * time.Minute

	gcDiscardRatio = 0.5
)

var (
	// ErrNotFound is returned by Get when no killmail is stored under the id.
	ErrNotFound = errors.New("killmail not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("killmail store is closed")
)

// KillmailStore is a BadgerDB-backed killmail archive.
type KillmailStore struct {
	db         *badger.DB
	retention  time.Duration
	gcInterval time.Duration

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store described by cfg.
func Open(cfg config.StorageConfig) (*KillmailStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("storage path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	// Badger's own logger is too chatty for the service log.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &KillmailStore{
		db:         db,
		retention:  cfg.Retention,
		gcInterval: cfg.GCInterval,
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.gcInterval <= 0 {
		s.gcInterval = DefaultGCInterval
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("retention", s.retention).
		Msg("Killmail store opened")
	return s, nil
}

func killmailKey(id int64) []byte {
	return []byte(keyPrefix + strconv.FormatInt(id, 10))
}

// Save writes km under its id. Saving the same id again overwrites the
// previous entry and restarts its retention.
func (s *KillmailStore) Save(ctx context.Context, km *models.Killmail) (err error) {
	defer func() { metrics.RecordStore(err) }()

	if km == nil {
		return fmt.Errorf("save killmail: nil killmail")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkNotClosed(); err != nil {
		return err
	}

	data, err := json.Marshal(km)
	if err != nil {
		return fmt.Errorf("marshal killmail %d: %w", km.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(killmailKey(km.ID), data).WithTTL(s.retention))
	})
	if err != nil {
		return fmt.Errorf("write killmail %d: %w", km.ID, err)
	}

	logging.Ctx(ctx).Debug().Int64("killmail_id", km.ID).Int("bytes", len(data)).Msg("Killmail stored")
	return nil
}

// Get returns the stored killmail or ErrNotFound.
func (s *KillmailStore) Get(ctx context.Context, id int64) (*models.Killmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}

	var km models.Killmail
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(killmailKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &km)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read killmail %d: %w", id, err)
	}
	return &km, nil
}

// Count returns the number of live killmails. It walks keys only.
func (s *KillmailStore) Count() (int, error) {
	if err := s.checkNotClosed(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count killmails: %w", err)
	}
	return count, nil
}

// RunGC reclaims value-log space every gcInterval until ctx is done.
func (s *KillmailStore) RunGC(ctx context.Context) error {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.collectGarbage(); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				logging.Warn().Err(err).Msg("Killmail store GC failed")
			}
		}
	}
}

func (s *KillmailStore) collectGarbage() error {
	if err := s.checkNotClosed(); err != nil {
		return err
	}
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the underlying database. It is safe to call more than once.
func (s *KillmailStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *KillmailStore) checkNotClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Serve implements suture.Service by running value-log GC.
func (s *KillmailStore) Serve(ctx context.Context) error {
	return s.RunGC(ctx)
}

// String implements fmt.Stringer for supervision logs.
func (s *KillmailStore) String() string {
	return "killmail-store"
}
