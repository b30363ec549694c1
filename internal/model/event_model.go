package model

import (
	"time"
)

// EventModel 发售生命周期事件
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	LaunchId   int64     `json:"launch_id" gorm:"not null;index"`
	EventType  string    `json:"event_type" gorm:"not null"`
	Address    string    `json:"address" gorm:"size:42"`
	Data       string    `json:"data" gorm:"type:text"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
