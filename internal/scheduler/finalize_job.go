package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
)

// Finalizer 自动结束任务依赖的账本能力
type Finalizer interface {
	DueForFinalize(ctx context.Context, limit int) ([]uint64, error)
	Finalize(ctx context.Context, caller common.Address, launchID uint64) error
}

// FinalizeJob 以平台管理员身份结束已过 endTime 的发售
type FinalizeJob struct {
	ledger   Finalizer
	owner    common.Address
	interval time.Duration
	batch    int
}

// NewFinalizeJob 创建自动结束任务
func NewFinalizeJob(l Finalizer, owner common.Address, interval time.Duration, batch int) *FinalizeJob {
	if batch <= 0 {
		batch = 100
	}
	return &FinalizeJob{ledger: l, owner: owner, interval: interval, batch: batch}
}

// GetName 获取任务名称
func (j *FinalizeJob) GetName() string {
	return "launch_finalizer"
}

// GetSchedule 获取调度配置
func (j *FinalizeJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *FinalizeJob) Execute(ctx context.Context) {
	ids, err := j.ledger.DueForFinalize(ctx, j.batch)
	if err != nil {
		logger.Error("Failed to fetch launches due for finalize: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	finalized := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		err := j.ledger.Finalize(ctx, j.owner, id)
		switch {
		case err == nil:
			finalized++
		case errors.Is(err, ledger.ErrLaunchAlreadyFinalized):
			// 已被手动结束
		default:
			logger.Error("Failed to finalize launch %d: %v", id, err)
		}
	}
	logger.Info("Launch finalize completed. Finalized %d of %d launches", finalized, len(ids))
}
