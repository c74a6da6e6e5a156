package state

import "sync"

const shardCount = 32

type shard[V any] struct {
	mu       sync.RWMutex
	sessions map[int64]V
}

// Store is a concurrent map from chat id to a session value.
// Ids are spread over independent shards, so operations on different chats
// rarely contend; operations on one id are linearizable.
// Values are stored and returned by copy.
type Store[V any] struct {
	shards [shardCount]*shard[V]
}

// NewStore constructs an empty in-memory Store.
func NewStore[V any]() *Store[V] {
	s := &Store[V]{}
	for i := range s.shards {
		s.shards[i] = &shard[V]{sessions: make(map[int64]V)}
	}
	return s
}

func (s *Store[V]) shardFor(id int64) *shard[V] {
	return s.shards[uint64(id)%shardCount]
}

// Get returns the session for id and whether it exists.
func (s *Store[V]) Get(id int64) (V, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.sessions[id]
	return v, ok
}

// Set stores the session for id, replacing any previous value.
func (s *Store[V]) Set(id int64, v V) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sessions[id] = v
}

// Remove deletes the session for id and returns the removed value, if any.
func (s *Store[V]) Remove(id int64) (V, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.sessions[id]
	if ok {
		delete(sh.sessions, id)
	}
	return v, ok
}

// Update atomically applies fn to the session for id. fn receives the current
// value and whether it exists; it returns the next value and whether to keep it.
// Returning keep=false removes the entry.
func (s *Store[V]) Update(id int64, fn func(cur V, ok bool) (next V, keep bool)) (V, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur, ok := sh.sessions[id]
	next, keep := fn(cur, ok)
	if !keep {
		delete(sh.sessions, id)
		var zero V
		return zero, false
	}
	sh.sessions[id] = next
	return next, true
}

// Len reports the number of stored sessions.
func (s *Store[V]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
