package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
)

var (
	ErrNotFound         = errors.New("allocation not found")
	ErrAlreadyDelivered = errors.New("allocation already delivered")
)

// Status 发放状态
type Status string

const (
	StatusPending   Status = "pending"   // 待发放
	StatusDelivered Status = "delivered" // 已发放
	StatusFailed    Status = "failed"    // 发放失败，待重试
)

// Record 一条分配及其发放进度
type Record struct {
	ID         int64             `json:"id"`
	Allocation ledger.Allocation `json:"allocation"`
	Status     Status            `json:"status"`
	Attempts   int               `json:"attempts"`
	LastError  string            `json:"last_error,omitempty"`
	TxHash     string            `json:"tx_hash,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Store 分配记录存储
type Store interface {
	// Record 以 (launch, recipient) 为键登记分配，已存在时返回已有记录
	Record(ctx context.Context, a ledger.Allocation) (*Record, error)
	Get(ctx context.Context, id int64) (*Record, error)
	MarkDelivered(ctx context.Context, id int64, txHash string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	Failed(ctx context.Context, limit int) ([]Record, error)
}

// Deliverer 实际执行发放，返回交易哈希或其它凭据
type Deliverer interface {
	Deliver(ctx context.Context, a ledger.Allocation) (string, error)
}

// Ledgered 实现 ledger.Issuer：先登记再发放，失败的分配可以重试，已发放的不会重复发放
type Ledgered struct {
	store     Store
	deliverer Deliverer
}

func NewLedgered(store Store, deliverer Deliverer) *Ledgered {
	return &Ledgered{store: store, deliverer: deliverer}
}

// Record 登记待发放的分配。领取事务内调用，ctx 绑定该事务，随领取一起提交或回滚。
func (l *Ledgered) Record(ctx context.Context, a ledger.Allocation) error {
	if _, err := l.store.Record(ctx, a); err != nil {
		return fmt.Errorf("record allocation: %w", err)
	}
	return nil
}

// Deliver 发放已登记的分配，已发放的直接返回
func (l *Ledgered) Deliver(ctx context.Context, a ledger.Allocation) error {
	rec, err := l.store.Record(ctx, a)
	if err != nil {
		return fmt.Errorf("load allocation: %w", err)
	}
	if rec.Status == StatusDelivered {
		return nil
	}
	return l.deliver(ctx, rec)
}

// Retry 重新发放单条分配
func (l *Ledgered) Retry(ctx context.Context, id int64) (*Record, error) {
	rec, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusDelivered {
		return rec, ErrAlreadyDelivered
	}
	deliverErr := l.deliver(ctx, rec)
	updated, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return updated, deliverErr
}

// RetryFailed 重试最多 limit 条失败的分配，返回成功数量
func (l *Ledgered) RetryFailed(ctx context.Context, limit int) (int, error) {
	failed, err := l.store.Failed(ctx, limit)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for i := range failed {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if err := l.deliver(ctx, &failed[i]); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

func (l *Ledgered) deliver(ctx context.Context, rec *Record) error {
	a := rec.Allocation
	txHash, err := l.deliverer.Deliver(ctx, a)
	if err != nil {
		logger.Warn("Delivery of allocation %d (launch %d, %s) failed: %v", rec.ID, a.LaunchID, a.Recipient.Hex(), err)
		if markErr := l.store.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			logger.Error("Failed to mark allocation %d as failed: %v", rec.ID, markErr)
		}
		return err
	}

	// 发放已经发生，这里出错只能记录，记录保持 pending 以免被自动重试
	if err := l.store.MarkDelivered(ctx, rec.ID, txHash); err != nil {
		logger.Error("Allocation %d delivered in %s but could not be marked: %v", rec.ID, txHash, err)
		return nil
	}
	logger.Info("Delivered allocation %d: %d units of %s to %s", rec.ID, a.Count, a.Collection, a.Recipient.Hex())
	return nil
}
