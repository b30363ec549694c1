package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name   string
	mu     sync.Mutex
	events []ledger.Event
	err    error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(_ context.Context, e ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) launchIDs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.events))
	for _, e := range s.events {
		ids = append(ids, e.LaunchID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type saverFunc func(ctx context.Context, e ledger.Event) error

func (f saverFunc) Save(ctx context.Context, e ledger.Event) error { return f(ctx, e) }

func TestDispatcherFansOut(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b", err: errors.New("sink down")}
	d, err := NewDispatcher(2, a, b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	for i := uint64(1); i <= 20; i++ {
		d.Emit(ctx, ledger.Event{Type: ledger.EventPurchaseRecorded, LaunchID: i, OccurredAt: time.Now()})
	}
	cancel()
	d.Close()

	want := make([]uint64, 0, 20)
	for i := uint64(1); i <= 20; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, a.launchIDs())
	assert.Equal(t, want, b.launchIDs())
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	a := &recordingSink{name: "a"}
	d, err := NewDispatcher(1, a)
	require.NoError(t, err)
	d.Close()
	d.Close()

	d.Emit(context.Background(), ledger.Event{Type: ledger.EventClaimed, LaunchID: 1})
	assert.Empty(t, a.launchIDs())
}

func TestStoreSinkDetachesCancellation(t *testing.T) {
	var got []error
	var mu sync.Mutex
	sink := NewStoreSink(saverFunc(func(ctx context.Context, e ledger.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ctx.Err())
		return nil
	}))
	d, err := NewDispatcher(1, sink, LogSink{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Emit(ctx, ledger.Event{Type: ledger.EventLaunchCreated, LaunchID: 3, Collection: "c"})
	d.Close()

	require.Len(t, got, 1)
	assert.NoError(t, got[0])
}
