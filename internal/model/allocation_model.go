package model

import (
	"time"
)

// AllocationStatus 发放状态
type AllocationStatus string

const (
	AllocationStatusPending   AllocationStatus = "pending"   // 待发放
	AllocationStatusDelivered AllocationStatus = "delivered" // 已发放
	AllocationStatusFailed    AllocationStatus = "failed"    // 发放失败，待重试
)

// AllocationModel 领取后交给发放方的分配记录，(launch_id, recipient) 唯一
type AllocationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LaunchId   int64  `json:"launch_id" gorm:"not null;uniqueIndex:idx_allocation_launch_recipient"`
	Collection string `json:"collection" gorm:"not null"`
	Recipient  string `json:"recipient" gorm:"not null;size:42;uniqueIndex:idx_allocation_launch_recipient"`
	Count      uint64 `json:"count" gorm:"not null"`

	Status    AllocationStatus `json:"status" gorm:"not null;index;default:'pending'"`
	Attempts  int              `json:"attempts" gorm:"default:0"`
	LastError string           `json:"last_error" gorm:"type:text"`
	TxHash    string           `json:"tx_hash"`
}

// TableName 自定义表名
func (AllocationModel) TableName() string {
	return "allocation"
}
