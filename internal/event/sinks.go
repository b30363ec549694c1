package event

import (
	"context"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
)

// Saver 事件持久化接口，repository.EventStore 满足该接口
type Saver interface {
	Save(ctx context.Context, e ledger.Event) error
}

// StoreSink 把事件写入存储
type StoreSink struct {
	saver Saver
}

func NewStoreSink(saver Saver) *StoreSink {
	return &StoreSink{saver: saver}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Handle(ctx context.Context, e ledger.Event) error {
	return s.saver.Save(ctx, e)
}

// LogSink 把事件写入日志
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Handle(_ context.Context, e ledger.Event) error {
	switch e.Type {
	case ledger.EventLaunchCreated:
		logger.Info("[event] %s launch=%d collection=%s supply=%d creator=%s",
			e.Type, e.LaunchID, e.Collection, e.TotalSupply, e.Address.Hex())
	case ledger.EventClaimed:
		logger.Info("[event] %s launch=%d participant=%s count=%d", e.Type, e.LaunchID, e.Address.Hex(), e.Count)
	default:
		logger.Info("[event] %s launch=%d address=%s", e.Type, e.LaunchID, e.Address.Hex())
	}
	return nil
}
