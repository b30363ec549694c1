package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
	"github.com/panjf2000/ants/v2"
	"github.com/sasha-s/go-deadlock"
)

// Sink 事件接收方
type Sink interface {
	Name() string
	Handle(ctx context.Context, e ledger.Event) error
}

// Dispatcher 通过协程池把事件分发给所有接收方，实现 ledger.Emitter
type Dispatcher struct {
	mu     deadlock.RWMutex
	sinks  []Sink
	pool   *ants.Pool
	wg     sync.WaitGroup
	closed bool
}

// NewDispatcher 创建分发器，workers 为协程池大小
func NewDispatcher(workers int, sinks ...Sink) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create event pool: %w", err)
	}
	d := &Dispatcher{pool: pool}
	for _, s := range sinks {
		d.Register(s)
	}
	return d, nil
}

// Register 注册事件接收方
func (d *Dispatcher) Register(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
	logger.Info("Registered event sink: %s", s.Name())
}

// Emit 异步分发事件，调用方的取消不影响已提交的事件
func (d *Dispatcher) Emit(ctx context.Context, e ledger.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.Warn("Dropping %s event for launch %d: dispatcher closed", e.Type, e.LaunchID)
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		sink := s
		d.wg.Add(1)
		err := d.pool.Submit(func() {
			defer d.wg.Done()
			d.deliver(ctx, sink, e)
		})
		if err != nil {
			// 协程池不可用时同步处理，事件不丢失
			d.wg.Done()
			logger.Warn("Failed to submit event to pool: %v", err)
			d.deliver(ctx, sink, e)
		}
	}
}

// Close 等待已提交的事件处理完毕后释放协程池
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	d.pool.Release()
	logger.Info("Event dispatcher stopped")
}

// Running 正在处理的事件数
func (d *Dispatcher) Running() int {
	return d.pool.Running()
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, e ledger.Event) {
	if err := s.Handle(ctx, e); err != nil {
		logger.Error("Event sink %s failed on %s for launch %d: %v", s.Name(), e.Type, e.LaunchID, err)
	}
}
