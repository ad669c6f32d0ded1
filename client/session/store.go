package session

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// User is the identity half of a persisted session.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is the unit of persistence: the authenticated user together
// with the credential proving it. It is stored as a single JSON value
// under one fixed key, so eviction is one delete.
type Session struct {
	User       User   `json:"user"`
	Credential string `json:"credential"`
}

// Store persists at most one session.
type Store interface {
	// Load returns the persisted session, or (nil, nil) when none exists.
	Load() (*Session, error)
	Save(session *Session) error
	Clear() error
}

var (
	sessionBucket = []byte("session")
	sessionKey    = []byte("current")
)

// BoltStore persists the session in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates the session bucket and returns a store over db.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "[NewBoltStore] create bucket")
	}
	return &BoltStore{db: db}, nil
}

// Load implements Store.
func (s *BoltStore) Load() (*Session, error) {
	var session *Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(sessionBucket).Get(sessionKey)
		if value == nil {
			return nil
		}
		session = &Session{}
		return json.Unmarshal(value, session)
	})
	if err != nil {
		return nil, errors.Wrap(err, "[BoltStore.Load]")
	}
	return session, nil
}

// Save implements Store.
func (s *BoltStore) Save(session *Session) error {
	value, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[BoltStore.Save] marshal")
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(sessionKey, value)
	})
	return errors.Wrap(err, "[BoltStore.Save]")
}

// Clear implements Store.
func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(sessionKey)
	})
	return errors.Wrap(err, "[BoltStore.Clear]")
}

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu      sync.Mutex
	session *Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

// Save implements Store.
func (s *MemoryStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.session = &copied
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
