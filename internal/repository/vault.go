package repository

import (
	"context"
	"errors"

	"github.com/blues/launchpad/internal/confidential"
	"github.com/blues/launchpad/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Vault 基于 gorm 的密文存储，在账本事务内调用时随事务一起提交或回滚
type Vault struct {
	db *gorm.DB
}

func NewVault(db *gorm.DB) *Vault {
	return &Vault{db: db}
}

func (v *Vault) Put(ctx context.Context, h confidential.Handle, sealed []byte) error {
	return conn(ctx, v.db).Create(&model.CiphertextModel{
		Handle: string(h),
		Sealed: sealed,
	}).Error
}

func (v *Vault) Get(ctx context.Context, h confidential.Handle) ([]byte, error) {
	var m model.CiphertextModel
	if err := conn(ctx, v.db).Where("handle = ?", string(h)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, confidential.ErrUnknownHandle
		}
		return nil, err
	}
	return m.Sealed, nil
}

func (v *Vault) Grant(ctx context.Context, h confidential.Handle, principal common.Address) error {
	return conn(ctx, v.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&model.CiphertextGrantModel{
		Handle:    string(h),
		Principal: principal.Hex(),
	}).Error
}

func (v *Vault) Allowed(ctx context.Context, h confidential.Handle, principal common.Address) (bool, error) {
	db := conn(ctx, v.db)
	if _, err := v.Get(ctx, h); err != nil {
		return false, err
	}
	var n int64
	err := db.Model(&model.CiphertextGrantModel{}).
		Where("handle = ? AND principal = ?", string(h), principal.Hex()).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
