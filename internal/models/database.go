package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding the session table and the
// resolved-stream cache table.
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Session operations

// CreateSession persists a new stream session
func (db *Database) CreateSession(session *StreamSession) error {
	return db.store.Insert(session.ID, session)
}

// GetSession retrieves a session by id. Expiry is not checked here;
// callers decide how to treat expired rows.
func (db *Database) GetSession(id string) (*StreamSession, error) {
	var session StreamSession
	err := db.store.Get(id, &session)
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSession updates an existing session row
func (db *Database) UpdateSession(session *StreamSession) error {
	return db.store.Update(session.ID, session)
}

// DeleteSession deletes a session by id
func (db *Database) DeleteSession(id string) error {
	err := db.store.Delete(id, &StreamSession{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// DeleteExpiredSessions removes all sessions whose expiry has passed
// and returns how many rows were removed
func (db *Database) DeleteExpiredSessions(now time.Time) (int, error) {
	var sessions []*StreamSession
	err := db.store.Find(&sessions, bolthold.Where("ExpiresAt").Lt(now))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, session := range sessions {
		if err := db.store.Delete(session.ID, &StreamSession{}); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// CountSessions returns the number of persisted sessions
func (db *Database) CountSessions() (int, error) {
	var sessions []*StreamSession
	err := db.store.Find(&sessions, nil)
	return len(sessions), err
}

// Resolved-stream cache operations

// UpsertCacheEntry inserts or refreshes a cache entry keyed by
// (content key, origin, quality). Never duplicated.
func (db *Database) UpsertCacheEntry(entry *ResolvedStreamCacheEntry) error {
	entry.Key = CacheKey(entry.ContentKey, entry.Origin, entry.Quality)
	return db.store.Upsert(entry.Key, entry)
}

// GetCacheEntry retrieves one cache entry by its store key, expired or
// not. Used to merge usage stats across upserts.
func (db *Database) GetCacheEntry(key string) (*ResolvedStreamCacheEntry, error) {
	var entry ResolvedStreamCacheEntry
	err := db.store.Get(key, &entry)
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetCacheEntries retrieves all unexpired cache entries for a content
// key. Expired rows are implicitly treated as misses.
func (db *Database) GetCacheEntries(contentKey string, now time.Time) ([]*ResolvedStreamCacheEntry, error) {
	var entries []*ResolvedStreamCacheEntry
	err := db.store.Find(&entries, bolthold.Where("ContentKey").Eq(contentKey))
	if err != nil {
		return nil, err
	}

	fresh := make([]*ResolvedStreamCacheEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Expired(now) {
			continue
		}
		fresh = append(fresh, entry)
	}

	return fresh, nil
}

// TouchCacheEntry records a cache hit on an entry
func (db *Database) TouchCacheEntry(entry *ResolvedStreamCacheEntry, now time.Time) error {
	entry.LastUsedAt = now
	entry.UseCount++
	return db.store.Update(entry.Key, entry)
}

// RecordCacheFailure increments the failure counter on the cache entry
// for the key, if one exists. Called when a stream served from this
// entry turns out to have a dead upstream link.
func (db *Database) RecordCacheFailure(key string) error {
	entry, err := db.GetCacheEntry(key)
	if err != nil || entry == nil {
		return err
	}
	entry.FailureCount++
	return db.store.Update(entry.Key, entry)
}

// DeleteExpiredCacheEntries removes all cache rows whose expiry has
// passed and returns how many rows were removed
func (db *Database) DeleteExpiredCacheEntries(now time.Time) (int, error) {
	var entries []*ResolvedStreamCacheEntry
	err := db.store.Find(&entries, bolthold.Where("ExpiresAt").Lt(now))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if err := db.store.Delete(entry.Key, &ResolvedStreamCacheEntry{}); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// CountCacheEntries returns the number of persisted cache entries
func (db *Database) CountCacheEntries() (int, error) {
	var entries []*ResolvedStreamCacheEntry
	err := db.store.Find(&entries, nil)
	return len(entries), err
}
