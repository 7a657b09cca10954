// internal/store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document exists.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrConflict is returned when a transaction kept losing to concurrent writers.
	ErrConflict = errors.New("transaction conflict: retries exhausted")
)

// DefaultMaxAttempts bounds how often a conflicting transaction is re-run against fresh state.
const DefaultMaxAttempts = 8

// Key names one document.
type Key struct {
	Collection string
	ID         string
}

func (k Key) String() string {
	return k.Collection + "/" + k.ID
}

func GameKey(id uuid.UUID) Key {
	return Key{Collection: models.CollectionGames, ID: id.String()}
}

func ProfileKey(userID uuid.UUID) Key {
	return Key{Collection: models.CollectionProfiles, ID: userID.String()}
}

func TransactionKey(id uuid.UUID) Key {
	return Key{Collection: models.CollectionTransactions, ID: id.String()}
}

// Tx reads and writes documents inside one atomic, serializable attempt. Writes become visible
// to other transactions only when the callback returns nil and the commit succeeds.
type Tx interface {
	Get(ctx context.Context, key Key, dst any) error
	Set(ctx context.Context, key Key, v any) error
	// Create fails with ErrAlreadyExists if the document exists.
	Create(ctx context.Context, key Key, v any) error
}

// Query selects documents of a collection whose top-level string Field is one of In, last
// updated (the "updated_at" field) before UpdatedBefore when that is non-zero.
type Query struct {
	Field         string
	In            []string
	UpdatedBefore time.Time
	Limit         int
}

// Store is the transactional key-document store.
type Store interface {
	Get(ctx context.Context, key Key, dst any) error
	// Transact runs fn until it commits. fn may run more than once and must not have side
	// effects outside tx. An error from fn aborts with nothing written.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	List(ctx context.Context, collection string, q Query) ([]string, error)
}
