// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	version int64
}

// Memory is an in-process Store with optimistic concurrency: every transaction remembers the
// version of each document it read and commits only if none changed meanwhile.
type Memory struct {
	mu          sync.Mutex
	docs        map[Key]memEntry
	MaxAttempts int
}

func NewMemory() *Memory {
	return &Memory{
		docs:        make(map[Key]memEntry),
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Put writes a document outside any transaction. Intended for seeding.
func (m *Memory) Put(key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = memEntry{data: data, version: m.docs[key].version + 1}
	return nil
}

func (m *Memory) Get(ctx context.Context, key Key, dst any) error {
	m.mu.Lock()
	e, ok := m.docs[key]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(e.data, dst)
}

func (m *Memory) List(ctx context.Context, collection string, q Query) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for k, e := range m.docs {
		if k.Collection != collection {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(e.data, &fields); err != nil {
			continue
		}
		if q.Field != "" && !fieldIn(fields[q.Field], q.In) {
			continue
		}
		if !q.UpdatedBefore.IsZero() {
			var updated time.Time
			if err := json.Unmarshal(fields["updated_at"], &updated); err != nil || !updated.Before(q.UpdatedBefore) {
				continue
			}
		}
		ids = append(ids, k.ID)
	}
	sort.Strings(ids)
	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}
	return ids, nil
}

func fieldIn(raw json.RawMessage, in []string) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	for _, v := range in {
		if v == s {
			return true
		}
	}
	return false
}

func (m *Memory) Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	attempts := m.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{
			m:      m,
			reads:  make(map[Key]int64),
			writes: make(map[Key][]byte),
		}
		if err := fn(ctx, tx); err != nil {
			if errors.Is(err, errStale) {
				continue
			}
			return err
		}
		err := m.commit(tx)
		if errors.Is(err, errStale) {
			continue
		}
		return err
	}
	return ErrConflict
}

var errStale = errors.New("stale read")

func (m *Memory) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range tx.reads {
		if m.docs[k].version != v {
			return errStale
		}
	}
	for k, data := range tx.writes {
		m.docs[k] = memEntry{data: data, version: m.docs[k].version + 1}
	}
	return nil
}

type memTx struct {
	m      *Memory
	reads  map[Key]int64 // version observed; 0 means absent
	writes map[Key][]byte
}

// observe records the committed version of key the first time this transaction looks at it.
// A second look that finds a newer version means a concurrent commit landed; the attempt is
// abandoned and re-run.
func (t *memTx) observe(key Key) (memEntry, error) {
	t.m.mu.Lock()
	e := t.m.docs[key]
	t.m.mu.Unlock()
	if v, seen := t.reads[key]; !seen {
		t.reads[key] = e.version
	} else if v != e.version {
		return memEntry{}, errStale
	}
	return e, nil
}

func (t *memTx) Get(ctx context.Context, key Key, dst any) error {
	if data, ok := t.writes[key]; ok {
		return json.Unmarshal(data, dst)
	}
	e, err := t.observe(key)
	if err != nil {
		return err
	}
	if e.version == 0 {
		return ErrNotFound
	}
	return json.Unmarshal(e.data, dst)
}

func (t *memTx) Set(ctx context.Context, key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	t.writes[key] = data
	return nil
}

func (t *memTx) Create(ctx context.Context, key Key, v any) error {
	if _, ok := t.writes[key]; ok {
		return ErrAlreadyExists
	}
	e, err := t.observe(key)
	if err != nil {
		return err
	}
	if e.version != 0 {
		return ErrAlreadyExists
	}
	return t.Set(ctx, key, v)
}
