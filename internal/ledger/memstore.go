package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"
)

type memLaunch struct {
	mu             deadlock.Mutex // 串行化该发售上的所有写操作
	launch         Launch
	participations map[common.Address]Participation
	order          []common.Address
}

// MemoryStore 内存账本存储，每个发售一把锁，提交前的修改只存在于副本中
type MemoryStore struct {
	mu       deadlock.RWMutex
	nextID   uint64
	launches map[uint64]*memLaunch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{launches: make(map[uint64]*memLaunch)}
}

func (s *MemoryStore) InsertLaunch(_ context.Context, l *Launch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l.ID = s.nextID
	l.Version = 1
	s.launches[l.ID] = &memLaunch{
		launch:         *l,
		participations: make(map[common.Address]Participation),
	}
	return nil
}

func (s *MemoryStore) get(id uint64) (*memLaunch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ml, ok := s.launches[id]
	return ml, ok
}

func (s *MemoryStore) Update(ctx context.Context, launchID uint64, fn func(ctx context.Context, tx Tx) error) error {
	ml, ok := s.get(launchID)
	if !ok {
		return ErrNoRecord
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	tx := &memTx{
		launch:  ml.launch,
		source:  ml,
		touched: make(map[common.Address]Participation),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	// 提交
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.launchDirty {
		tx.launch.Version = ml.launch.Version + 1
		ml.launch = tx.launch
	}
	for addr, p := range tx.touched {
		prev, existed := ml.participations[addr]
		if existed {
			p.Version = prev.Version + 1
		} else {
			p.Version = 1
			ml.order = append(ml.order, addr)
		}
		ml.participations[addr] = p
	}
	return nil
}

func (s *MemoryStore) Launch(_ context.Context, launchID uint64) (*Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ml, ok := s.launches[launchID]
	if !ok {
		return nil, ErrNoRecord
	}
	l := ml.launch
	return &l, nil
}

func (s *MemoryStore) Participation(_ context.Context, launchID uint64, participant common.Address) (*Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ml, ok := s.launches[launchID]
	if !ok {
		return nil, ErrNoRecord
	}
	p, ok := ml.participations[participant]
	if !ok {
		return nil, ErrNoRecord
	}
	return &p, nil
}

func (s *MemoryStore) Participants(_ context.Context, launchID uint64, offset, limit int) ([]Participation, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ml, ok := s.launches[launchID]
	if !ok {
		return nil, 0, ErrNoRecord
	}
	total := int64(len(ml.order))
	if offset >= len(ml.order) {
		return []Participation{}, total, nil
	}
	end := len(ml.order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Participation, 0, end-offset)
	for _, addr := range ml.order[offset:end] {
		out = append(out, ml.participations[addr])
	}
	return out, total, nil
}

func (s *MemoryStore) DueForFinalize(_ context.Context, now time.Time, limit int) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uint64
	for id, ml := range s.launches {
		if ml.launch.State == StateActive && now.After(ml.launch.EndTime) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type memTx struct {
	launch      Launch
	launchDirty bool
	source      *memLaunch
	touched     map[common.Address]Participation
}

func (t *memTx) Launch() *Launch {
	l := t.launch
	return &l
}

func (t *memTx) Participation(participant common.Address) (*Participation, error) {
	if p, ok := t.touched[participant]; ok {
		return &p, nil
	}
	// 写入 participations 必须同时持有发售锁，这里读取是安全的
	p, ok := t.source.participations[participant]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) PutLaunch(l *Launch) error {
	t.launch = *l
	t.launchDirty = true
	return nil
}

func (t *memTx) PutParticipation(p *Participation) error {
	t.touched[p.Participant] = *p
	return nil
}
