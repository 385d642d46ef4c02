package interview

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
)

const shardCount = 32

// record is the mutable state of one session. mu serializes every mutation
// of the session; readers take a snapshot under the read lock.
type record struct {
	mu sync.RWMutex

	id           string
	status       model.Status
	config       model.Config
	createdAt    time.Time
	endedAt      time.Time
	lastActivity time.Time
	transcript   []model.Entry
	responses    []model.Entry
	current      int // index of the pending prompt in transcript, -1 if none
	lastResponse int // index in transcript, -1 if none
	reason       string
	results      *model.Results
}

func newRecord(id string, cfg model.Config, at time.Time) *record {
	return &record{
		id:           id,
		status:       model.StatusCreated,
		config:       cfg,
		createdAt:    at,
		lastActivity: at,
		transcript:   make([]model.Entry, 0, 16),
		responses:    make([]model.Entry, 0, 8),
		current:      -1,
		lastResponse: -1,
	}
}

// stamp keeps transcript timestamps non-decreasing in receipt order.
func (r *record) stamp(now time.Time) time.Time {
	if now.Before(r.lastActivity) {
		return r.lastActivity
	}
	return now
}

// snapshot deep-copies the record. Caller holds r.mu.
func (r *record) snapshot() model.Session {
	s := model.Session{
		ID:           r.id,
		Status:       r.status,
		Config:       r.config,
		CreatedAt:    r.createdAt,
		LastActivity: r.lastActivity,
		Transcript:   model.CloneEntries(r.transcript),
		Responses:    model.CloneEntries(r.responses),
		Reason:       r.reason,
	}
	if r.status.Terminal() {
		ended := r.endedAt
		s.EndedAt = &ended
	}
	if r.current >= 0 {
		entry := r.transcript[r.current].Clone()
		s.CurrentQuestion = &entry
	}
	if r.lastResponse >= 0 {
		entry := r.transcript[r.lastResponse].Clone()
		s.LastResponse = &entry
	}
	if r.results != nil {
		results := r.results.Clone()
		s.Results = &results
	}
	return s
}

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

// Store is the keyed table of live sessions. Records are spread over shards
// so that operations on different sessions do not contend on one lock.
type Store struct {
	shards [shardCount]*shard
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*record)}
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%shardCount]
}

// insert adds r unless its id is already taken.
func (s *Store) insert(r *record) bool {
	sh := s.shardFor(r.id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.records[r.id]; exists {
		return false
	}
	sh.records[r.id] = r
	return true
}

func (s *Store) lookup(id string) (*record, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	r, ok := sh.records[id]
	return r, ok
}

func (s *Store) remove(id string) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.records[id]; !ok {
		return false
	}
	delete(sh.records, id)
	return true
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

// summaries lists every session ordered by creation time.
func (s *Store) summaries() []model.Summary {
	var records []*record
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, r := range sh.records {
			records = append(records, r)
		}
		sh.mu.RUnlock()
	}

	out := make([]model.Summary, 0, len(records))
	for _, r := range records {
		r.mu.RLock()
		out = append(out, model.Summary{ID: r.id, Status: r.status, CreatedAt: r.createdAt})
		r.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
