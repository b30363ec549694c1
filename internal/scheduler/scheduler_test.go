package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blues/launchpad/internal/issuer"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFinalizer struct {
	mu        sync.Mutex
	due       []uint64
	finalized map[uint64]bool
	callers   []common.Address
	fail      map[uint64]error
}

func (f *fakeFinalizer) DueForFinalize(_ context.Context, limit int) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint64
	for _, id := range f.due {
		if !f.finalized[id] {
			out = append(out, id)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeFinalizer) Finalize(_ context.Context, caller common.Address, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callers = append(f.callers, caller)
	if err, ok := f.fail[id]; ok {
		return err
	}
	f.finalized[id] = true
	return nil
}

func TestFinalizeJob(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	f := &fakeFinalizer{
		due:       []uint64{1, 2, 3, 4},
		finalized: map[uint64]bool{},
		fail: map[uint64]error{
			2: &ledger.Error{Kind: ledger.KindLaunchAlreadyFinalized, LaunchID: 2},
			3: errors.New("db down"),
		},
	}
	job := NewFinalizeJob(f, owner, time.Minute, 3)
	assert.Equal(t, "launch_finalizer", job.GetName())

	job.Execute(context.Background())
	assert.True(t, f.finalized[1])
	assert.False(t, f.finalized[4], "batch limit")
	for _, c := range f.callers {
		assert.Equal(t, owner, c)
	}

	job.Execute(context.Background())
	assert.True(t, f.finalized[4])
}

type flakyDeliverer struct {
	fail int32
}

func (d *flakyDeliverer) Deliver(context.Context, ledger.Allocation) (string, error) {
	if atomic.AddInt32(&d.fail, -1) >= 0 {
		return "", errors.New("rpc timeout")
	}
	return "0x01", nil
}

func TestAllocationRetryJob(t *testing.T) {
	ctx := context.Background()
	store := issuer.NewMemoryStore()
	l := issuer.NewLedgered(store, &flakyDeliverer{fail: 2})

	require.Error(t, l.Deliver(ctx, ledger.Allocation{LaunchID: 1, Recipient: common.HexToAddress("0x01"), Count: 1}))
	require.Error(t, l.Deliver(ctx, ledger.Allocation{LaunchID: 1, Recipient: common.HexToAddress("0x02"), Count: 2}))

	job := NewAllocationRetryJob(l, time.Minute, 0)
	assert.Equal(t, "allocation_retry", job.GetName())
	job.Execute(ctx)

	failed, err := store.Failed(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

type countingJob struct {
	runs int32
}

func (j *countingJob) GetName() string { return "counting" }

func (j *countingJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(20 * time.Millisecond)
}

func (j *countingJob) Execute(context.Context) { atomic.AddInt32(&j.runs, 1) }

func TestManagerRunsJobs(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	job := &countingJob{}
	require.NoError(t, m.Register(job))

	m.Start()
	defer m.Stop()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&job.runs) >= 2 }, 2*time.Second, 10*time.Millisecond)
}
