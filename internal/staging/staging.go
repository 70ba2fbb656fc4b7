// Package staging holds parsed-but-uncommitted import batches. Batches live
// in memory only, scoped to their owner, and expire on a TTL: discarding one
// has no side effects because nothing here ever reaches the durable store.
package staging

import (
	"container/list"
	"sync"
	"time"

	"bookkeeper/internal/core"
	"bookkeeper/internal/importer"
)

// Batch is one parsed import awaiting categorization.
type Batch struct {
	ID         string                `json:"id"`
	Owner      string                `json:"-"`
	Candidates []importer.Candidate  `json:"candidates"`
	Errors     []importer.ParseError `json:"errors"`
	CreatedAt  time.Time             `json:"createdAt"`
}

type entry struct {
	key       string
	batch     Batch
	expiresAt time.Time
}

// Store is a TTL-bounded, size-bounded batch cache. When full, the least
// recently touched batch is evicted first.
type Store struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

// NewStore creates a staging store holding at most maxSize batches, each
// expiring ttl after its last Put.
func NewStore(maxSize int, ttl time.Duration) *Store {
	return &Store{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func key(owner, batchID string) string {
	return owner + "\x00" + batchID
}

// Put stores a batch under its owner and id.
func (s *Store) Put(batch Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(batch.Owner, batch.ID)
	e := &entry{key: k, batch: batch, expiresAt: time.Now().Add(s.ttl)}

	if elem, exists := s.items[k]; exists {
		elem.Value = e
		s.lru.MoveToFront(elem)
		return
	}

	elem := s.lru.PushFront(e)
	s.items[k] = elem

	if s.lru.Len() > s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			s.removeElement(oldest)
		}
	}
}

// Get returns the batch if it exists for this owner and has not expired.
func (s *Store) Get(owner, batchID string) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.items[key(owner, batchID)]
	if !exists {
		return Batch{}, core.NewNotFoundError("import batch", batchID)
	}
	e := elem.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		s.removeElement(elem)
		return Batch{}, core.NewNotFoundError("import batch", batchID)
	}
	s.lru.MoveToFront(elem)
	return e.batch, nil
}

// Delete discards a batch. Deleting a missing batch is a no-op.
func (s *Store) Delete(owner, batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.items[key(owner, batchID)]; exists {
		s.removeElement(elem)
	}
}

// CleanExpired drops every expired batch and reports how many went away.
func (s *Store) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		s.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the number of live batches.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *Store) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(s.items, e.key)
	s.lru.Remove(elem)
}
