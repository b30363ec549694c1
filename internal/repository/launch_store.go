package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blues/launchpad/internal/confidential"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConcurrentUpdate 版本号不匹配，记录已被其它事务修改
var ErrConcurrentUpdate = errors.New("concurrent update detected")

// LaunchStore 基于 gorm 的账本存储
type LaunchStore struct {
	db *gorm.DB
}

// NewLaunchStore 创建账本存储
func NewLaunchStore(db *gorm.DB) *LaunchStore {
	return &LaunchStore{db: db}
}

func (s *LaunchStore) InsertLaunch(ctx context.Context, l *ledger.Launch) error {
	m := launchToModel(l)
	m.Version = 1
	if err := conn(ctx, s.db).Create(&m).Error; err != nil {
		return err
	}
	l.ID = uint64(m.Id)
	l.Version = m.Version
	return nil
}

// Update 在事务中锁定发售行后执行 fn。
// postgres 使用 SELECT ... FOR UPDATE；sqlite 单连接本身串行。
// 提交时按 version 做乐观校验。
func (s *LaunchStore) Update(ctx context.Context, launchID uint64, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		q := db
		if db.Dialector.Name() == "postgres" {
			q = db.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var m model.LaunchModel
		if err := q.First(&m, int64(launchID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.ErrNoRecord
			}
			return err
		}

		tx := &gormTx{
			db:      db,
			launch:  modelToLaunch(&m),
			touched: make(map[common.Address]ledger.Participation),
		}
		if err := fn(withTx(ctx, db), tx); err != nil {
			return err
		}
		return tx.commit()
	})
}

func (s *LaunchStore) Launch(ctx context.Context, launchID uint64) (*ledger.Launch, error) {
	var m model.LaunchModel
	if err := conn(ctx, s.db).First(&m, int64(launchID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNoRecord
		}
		return nil, err
	}
	l := modelToLaunch(&m)
	return &l, nil
}

func (s *LaunchStore) Participation(ctx context.Context, launchID uint64, participant common.Address) (*ledger.Participation, error) {
	var m model.ParticipationModel
	err := conn(ctx, s.db).
		Where("launch_id = ? AND participant = ?", int64(launchID), participant.Hex()).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNoRecord
		}
		return nil, err
	}
	p := modelToParticipation(&m)
	return &p, nil
}

func (s *LaunchStore) Participants(ctx context.Context, launchID uint64, offset, limit int) ([]ledger.Participation, int64, error) {
	db := conn(ctx, s.db)
	if _, err := s.Launch(ctx, launchID); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := db.Model(&model.ParticipationModel{}).Where("launch_id = ?", int64(launchID)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.ParticipationModel
	if err := db.Where("launch_id = ?", int64(launchID)).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]ledger.Participation, 0, len(rows))
	for i := range rows {
		out = append(out, modelToParticipation(&rows[i]))
	}
	return out, total, nil
}

func (s *LaunchStore) DueForFinalize(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	var ids []int64
	q := conn(ctx, s.db).Model(&model.LaunchModel{}).
		Where("status = ? AND end_time < ?", model.LaunchStatusActive, now.UTC()).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		out = append(out, uint64(id))
	}
	return out, nil
}

type gormTx struct {
	db      *gorm.DB
	launch  ledger.Launch
	dirty   bool
	touched map[common.Address]ledger.Participation
}

func (t *gormTx) Launch() *ledger.Launch {
	l := t.launch
	return &l
}

func (t *gormTx) Participation(participant common.Address) (*ledger.Participation, error) {
	if p, ok := t.touched[participant]; ok {
		return &p, nil
	}
	var m model.ParticipationModel
	err := t.db.Where("launch_id = ? AND participant = ?", int64(t.launch.ID), participant.Hex()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := modelToParticipation(&m)
	return &p, nil
}

func (t *gormTx) PutLaunch(l *ledger.Launch) error {
	t.launch = *l
	t.dirty = true
	return nil
}

func (t *gormTx) PutParticipation(p *ledger.Participation) error {
	t.touched[p.Participant] = *p
	return nil
}

func (t *gormTx) commit() error {
	if t.dirty {
		l := t.launch
		res := t.db.Model(&model.LaunchModel{}).
			Where("id = ? AND version = ?", int64(l.ID), l.Version).
			Updates(map[string]interface{}{
				"total_raised":     string(l.TotalRaised),
				"total_units_sold": string(l.TotalUnitsSold),
				"status":           stateToStatus(l.State),
				"purchases":        l.Purchases,
				"finalized_at":     l.FinalizedAt,
				"version":          l.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
	}

	for _, p := range t.touched {
		if p.Version == 0 {
			m := participationToModel(&p)
			m.Version = 1
			if err := t.db.Create(&m).Error; err != nil {
				return err
			}
			continue
		}
		res := t.db.Model(&model.ParticipationModel{}).
			Where("launch_id = ? AND participant = ? AND version = ?", int64(p.LaunchID), p.Participant.Hex(), p.Version).
			Updates(map[string]interface{}{
				"amount_paid":  string(p.AmountPaid),
				"units_bought": string(p.UnitsBought),
				"purchases":    p.Purchases,
				"claimed":      p.Claimed,
				"claimed_at":   p.ClaimedAt,
				"version":      p.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
	}
	return nil
}

func stateToStatus(s ledger.State) model.LaunchStatus {
	if s == ledger.StateFinalized {
		return model.LaunchStatusFinalized
	}
	return model.LaunchStatusActive
}

func launchToModel(l *ledger.Launch) model.LaunchModel {
	return model.LaunchModel{
		Id:             int64(l.ID),
		CreatedAt:      l.CreatedAt,
		Collection:     l.Collection,
		Creator:        l.Creator.Hex(),
		TotalSupply:    l.TotalSupply,
		PaymentAsset:   l.PaymentAsset,
		FeeBasisPoints: l.FeeBasisPoints,
		StartTime:      l.StartTime.UTC(),
		EndTime:        l.EndTime.UTC(),
		ReservePrice:   string(l.ReservePrice),
		TotalRaised:    string(l.TotalRaised),
		TotalUnitsSold: string(l.TotalUnitsSold),
		Status:         stateToStatus(l.State),
		Purchases:      l.Purchases,
		Version:        l.Version,
		FinalizedAt:    l.FinalizedAt,
	}
}

func modelToLaunch(m *model.LaunchModel) ledger.Launch {
	state := ledger.StateActive
	if m.Status == model.LaunchStatusFinalized {
		state = ledger.StateFinalized
	}
	return ledger.Launch{
		ID:             uint64(m.Id),
		Collection:     m.Collection,
		Creator:        common.HexToAddress(m.Creator),
		TotalSupply:    m.TotalSupply,
		StartTime:      m.StartTime.UTC(),
		EndTime:        m.EndTime.UTC(),
		ReservePrice:   confidential.Handle(m.ReservePrice),
		TotalRaised:    confidential.Handle(m.TotalRaised),
		TotalUnitsSold: confidential.Handle(m.TotalUnitsSold),
		PaymentAsset:   m.PaymentAsset,
		FeeBasisPoints: m.FeeBasisPoints,
		State:          state,
		Purchases:      m.Purchases,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt.UTC(),
		FinalizedAt:    m.FinalizedAt,
	}
}

func participationToModel(p *ledger.Participation) model.ParticipationModel {
	return model.ParticipationModel{
		LaunchId:    int64(p.LaunchID),
		Participant: p.Participant.Hex(),
		AmountPaid:  string(p.AmountPaid),
		UnitsBought: string(p.UnitsBought),
		Purchases:   p.Purchases,
		Claimed:     p.Claimed,
		ClaimedAt:   p.ClaimedAt,
		Version:     p.Version,
	}
}

func modelToParticipation(m *model.ParticipationModel) ledger.Participation {
	return ledger.Participation{
		LaunchID:    uint64(m.LaunchId),
		Participant: common.HexToAddress(m.Participant),
		AmountPaid:  confidential.Handle(m.AmountPaid),
		UnitsBought: confidential.Handle(m.UnitsBought),
		Purchases:   m.Purchases,
		Claimed:     m.Claimed,
		ClaimedAt:   m.ClaimedAt,
		Version:     m.Version,
	}
}
