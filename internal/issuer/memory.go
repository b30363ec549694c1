package issuer

import (
	"context"
	"sort"
	"time"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"
)

type allocationKey struct {
	launchID  uint64
	recipient common.Address
}

// MemoryStore 内存分配记录
type MemoryStore struct {
	mu      deadlock.Mutex
	nextID  int64
	records map[int64]*Record
	byKey   map[allocationKey]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]*Record),
		byKey:   make(map[allocationKey]int64),
	}
}

func (s *MemoryStore) Record(_ context.Context, a ledger.Allocation) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := allocationKey{a.LaunchID, a.Recipient}
	if id, ok := s.byKey[key]; ok {
		rec := *s.records[id]
		return &rec, nil
	}
	s.nextID++
	now := time.Now().UTC()
	rec := &Record{ID: s.nextID, Allocation: a, Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	s.records[rec.ID] = rec
	s.byKey[key] = rec.ID
	out := *rec
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, id int64, txHash string) error {
	return s.mark(id, func(r *Record) {
		r.Status = StatusDelivered
		r.TxHash = txHash
		r.LastError = ""
	})
}

func (s *MemoryStore) MarkFailed(_ context.Context, id int64, reason string) error {
	return s.mark(id, func(r *Record) {
		r.Status = StatusFailed
		r.LastError = reason
	})
}

func (s *MemoryStore) Failed(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.Status == StatusFailed {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) mark(id int64, fn func(r *Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	rec.Attempts++
	rec.UpdatedAt = time.Now().UTC()
	return nil
}
