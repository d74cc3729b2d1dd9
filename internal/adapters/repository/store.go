// Package repository persists evaluator state in an embedded badger database.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/genie/internal/domain/reputation"
	"github.com/okian/genie/pkg/logger"
)

const ledgerKey = "ledger/snapshot"

// Config selects where the database lives.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Store is a badger-backed reputation.Store.
type Store struct {
	db     *badger.DB
	logger logger.Logger
}

var _ reputation.Store = (*Store)(nil)

// Open opens or creates the database described by cfg.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, ErrNoPath
	}

	var bopts badger.Options
	if cfg.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		bopts = badger.DefaultOptions(cfg.Path)
	}
	bopts = bopts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}
	return s, nil
}

// Load returns the stored ledger snapshot.
func (s *Store) Load(_ context.Context) (reputation.Snapshot, error) {
	var snap reputation.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ledgerKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return reputation.Snapshot{}, reputation.ErrNoSnapshot
	}
	if err != nil {
		return reputation.Snapshot{}, fmt.Errorf("load ledger: %w", err)
	}
	return snap, nil
}

// Save replaces the stored ledger snapshot.
func (s *Store) Save(ctx context.Context, snap reputation.Snapshot) error {
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ledgerKey), val)
	}); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	s.logger.Debug(ctx, "ledger saved",
		logger.Uint64("version", snap.Version),
		logger.Int("entries", len(snap.Entries)),
	)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
