package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/model/voice"
)

// sessionsKey is the single key holding the persisted session list.
var sessionsKey = []byte("voice:sessions")

// Store persists the bounded, ordered session list as one record.
type Store interface {
	Load(ctx context.Context) ([]voice.Session, error)
	Save(ctx context.Context, sessions []voice.Session) error
}

// Compile-time interface checks.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
)

// MemoryStore keeps the encoded list in memory. Useful for tests and for
// running without a data directory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) ([]voice.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeSessions(s.data)
}

func (s *MemoryStore) Save(_ context.Context, sessions []voice.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// BadgerStore persists sessions to a local BadgerDB directory.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures the badger-backed store.
type BadgerOptions struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string
	// InMemory keeps data in memory only; used by tests.
	InMemory bool
	// Log receives badger's internal warnings and errors. Optional.
	Log *zap.Logger
}

// NewBadgerStore opens (or creates) the badger database.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("session: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log.Sugar()})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Load(_ context.Context) ([]voice.Session, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionsKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []voice.Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	return decodeSessions(raw)
}

func (s *BadgerStore) Save(_ context.Context, sessions []voice.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionsKey, data)
	})
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func decodeSessions(raw []byte) ([]voice.Session, error) {
	if len(raw) == 0 {
		return []voice.Session{}, nil
	}
	var sessions []voice.Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

// badgerLogger routes badger's logging through zap, with info demoted to
// debug.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
