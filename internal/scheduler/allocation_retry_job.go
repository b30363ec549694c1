package scheduler

import (
	"context"
	"time"

	"github.com/blues/launchpad/internal/logger"
	"github.com/go-co-op/gocron/v2"
)

// Retrier 重试失败发放的能力，issuer.Ledgered 满足该接口
type Retrier interface {
	RetryFailed(ctx context.Context, limit int) (int, error)
}

// AllocationRetryJob 重新发放失败的分配
type AllocationRetryJob struct {
	retrier  Retrier
	interval time.Duration
	batch    int
}

// NewAllocationRetryJob 创建发放重试任务
func NewAllocationRetryJob(r Retrier, interval time.Duration, batch int) *AllocationRetryJob {
	if batch <= 0 {
		batch = 50
	}
	return &AllocationRetryJob{retrier: r, interval: interval, batch: batch}
}

// GetName 获取任务名称
func (j *AllocationRetryJob) GetName() string {
	return "allocation_retry"
}

// GetSchedule 获取调度配置
func (j *AllocationRetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *AllocationRetryJob) Execute(ctx context.Context) {
	n, err := j.retrier.RetryFailed(ctx, j.batch)
	if err != nil {
		logger.Error("Allocation retry failed: %v", err)
		return
	}
	if n > 0 {
		logger.Info("Allocation retry completed. Delivered %d allocations", n)
	}
}
