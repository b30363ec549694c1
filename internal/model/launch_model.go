package model

import (
	"time"
)

// LaunchStatus 发售状态
type LaunchStatus string

const (
	LaunchStatusActive    LaunchStatus = "active"    // 进行中
	LaunchStatusFinalized LaunchStatus = "finalized" // 已结束
)

// LaunchModel 发售记录，金额字段只保存密文句柄
type LaunchModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Collection     string `json:"collection" gorm:"not null;index"`
	Creator        string `json:"creator" gorm:"not null;size:42"`
	TotalSupply    uint64 `json:"total_supply" gorm:"not null"`
	PaymentAsset   string `json:"payment_asset" gorm:"not null"`
	FeeBasisPoints uint32 `json:"fee_basis_points" gorm:"default:0"`

	// 时间窗口
	StartTime time.Time `json:"start_time" gorm:"not null"`
	EndTime   time.Time `json:"end_time" gorm:"not null;index"`

	// 密文句柄
	ReservePrice   string `json:"reserve_price" gorm:"not null;size:36"`
	TotalRaised    string `json:"total_raised" gorm:"not null;size:36"`
	TotalUnitsSold string `json:"total_units_sold" gorm:"not null;size:36"`

	Status      LaunchStatus `json:"status" gorm:"not null;index;default:'active'"`
	Purchases   uint64       `json:"purchases" gorm:"default:0"`
	Version     uint64       `json:"version" gorm:"not null;default:1"`
	FinalizedAt *time.Time   `json:"finalized_at"`
}

// TableName 自定义表名
func (LaunchModel) TableName() string {
	return "launch"
}
