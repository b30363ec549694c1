package repository

import (
	"context"
	"errors"

	"github.com/blues/launchpad/internal/model"
	"github.com/blues/launchpad/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistryStore 基于 gorm 的集合登记存储
type RegistryStore struct {
	db *gorm.DB
}

// NewRegistryStore 创建登记存储
func NewRegistryStore(db *gorm.DB) *RegistryStore {
	return &RegistryStore{db: db}
}

// Insert 依赖主键冲突保证首次登记生效
func (s *RegistryStore) Insert(ctx context.Context, e registry.Entry) (registry.Entry, bool, error) {
	db := conn(ctx, s.db)
	m := model.CollectionModel{
		Collection:   e.Collection,
		Creator:      e.Creator.Hex(),
		RegisteredAt: e.RegisteredAt.UTC(),
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return registry.Entry{}, false, res.Error
	}
	if res.RowsAffected == 1 {
		return e, true, nil
	}

	existing, ok, err := s.Get(ctx, e.Collection)
	if err != nil {
		return registry.Entry{}, false, err
	}
	if !ok {
		return registry.Entry{}, false, errors.New("collection vanished after conflict")
	}
	return existing, false, nil
}

func (s *RegistryStore) Get(ctx context.Context, collection string) (registry.Entry, bool, error) {
	var m model.CollectionModel
	if err := conn(ctx, s.db).Where("collection = ?", collection).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return registry.Entry{}, false, nil
		}
		return registry.Entry{}, false, err
	}
	return registry.Entry{
		Collection:   m.Collection,
		Creator:      common.HexToAddress(m.Creator),
		RegisteredAt: m.RegisteredAt.UTC(),
	}, true, nil
}
