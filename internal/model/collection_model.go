package model

import (
	"time"
)

// CollectionModel 资产集合登记
type CollectionModel struct {
	Collection   string    `json:"collection" gorm:"primaryKey;size:128"`
	Creator      string    `json:"creator" gorm:"not null;size:42;index"`
	RegisteredAt time.Time `json:"registered_at" gorm:"not null"`
}

// TableName 自定义表名
func (CollectionModel) TableName() string {
	return "collection"
}
