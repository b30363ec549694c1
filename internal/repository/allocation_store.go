package repository

import (
	"context"
	"errors"

	"github.com/blues/launchpad/internal/issuer"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllocationStore 发放记录持久化
type AllocationStore struct {
	db *gorm.DB
}

func NewAllocationStore(db *gorm.DB) *AllocationStore {
	return &AllocationStore{db: db}
}

// Record 登记分配，(launch, recipient) 已存在时返回已有记录
func (s *AllocationStore) Record(ctx context.Context, a ledger.Allocation) (*issuer.Record, error) {
	db := conn(ctx, s.db)
	m := model.AllocationModel{
		LaunchId:   int64(a.LaunchID),
		Collection: a.Collection,
		Recipient:  a.Recipient.Hex(),
		Count:      a.Count,
		Status:     model.AllocationStatusPending,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return nil, err
	}

	var existing model.AllocationModel
	if err := db.Where("launch_id = ? AND recipient = ?", m.LaunchId, m.Recipient).First(&existing).Error; err != nil {
		return nil, err
	}
	return toRecord(&existing), nil
}

func (s *AllocationStore) Get(ctx context.Context, id int64) (*issuer.Record, error) {
	var m model.AllocationModel
	if err := conn(ctx, s.db).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, issuer.ErrNotFound
		}
		return nil, err
	}
	return toRecord(&m), nil
}

func (s *AllocationStore) MarkDelivered(ctx context.Context, id int64, txHash string) error {
	return conn(ctx, s.db).Model(&model.AllocationModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.AllocationStatusDelivered,
			"attempts":   gorm.Expr("attempts + ?", 1),
			"tx_hash":    txHash,
			"last_error": "",
		}).Error
}

func (s *AllocationStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	return conn(ctx, s.db).Model(&model.AllocationModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.AllocationStatusFailed,
			"attempts":   gorm.Expr("attempts + ?", 1),
			"last_error": reason,
		}).Error
}

// Failed 列出待重试的分配，最早失败的优先
func (s *AllocationStore) Failed(ctx context.Context, limit int) ([]issuer.Record, error) {
	var rows []model.AllocationModel
	q := conn(ctx, s.db).Where("status = ?", model.AllocationStatusFailed).Order("updated_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]issuer.Record, 0, len(rows))
	for i := range rows {
		out = append(out, *toRecord(&rows[i]))
	}
	return out, nil
}

func toRecord(m *model.AllocationModel) *issuer.Record {
	return &issuer.Record{
		ID: m.Id,
		Allocation: ledger.Allocation{
			LaunchID:   uint64(m.LaunchId),
			Collection: m.Collection,
			Recipient:  common.HexToAddress(m.Recipient),
			Count:      m.Count,
		},
		Status:    issuer.Status(m.Status),
		Attempts:  m.Attempts,
		LastError: m.LastError,
		TxHash:    m.TxHash,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
