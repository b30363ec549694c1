package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// EventStore 生命周期事件持久化
type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Save 保存事件，data 字段保存事件的完整 JSON
func (s *EventStore) Save(ctx context.Context, e ledger.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	m := model.EventModel{
		LaunchId:   int64(e.LaunchID),
		EventType:  string(e.Type),
		Data:       string(data),
		OccurredAt: e.OccurredAt.UTC(),
	}
	if e.Address != (common.Address{}) {
		m.Address = e.Address.Hex()
	}
	return conn(ctx, s.db).Create(&m).Error
}

// ListByLaunch 分页查询发售事件，按发生顺序
func (s *EventStore) ListByLaunch(ctx context.Context, launchID uint64, page, pageSize int) ([]ledger.Event, int64, error) {
	db := conn(ctx, s.db)
	var total int64
	if err := db.Model(&model.EventModel{}).Where("launch_id = ?", int64(launchID)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.EventModel
	offset := (page - 1) * pageSize
	if err := db.Where("launch_id = ?", int64(launchID)).
		Order("occurred_at ASC, id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]ledger.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeEvent(r))
	}
	return out, total, nil
}

func decodeEvent(r model.EventModel) ledger.Event {
	var e ledger.Event
	if err := json.Unmarshal([]byte(r.Data), &e); err != nil {
		e = ledger.Event{
			Type:       ledger.EventType(r.EventType),
			LaunchID:   uint64(r.LaunchId),
			Address:    common.HexToAddress(r.Address),
			OccurredAt: r.OccurredAt,
		}
	}
	e.OccurredAt = e.OccurredAt.In(time.UTC)
	return e
}
