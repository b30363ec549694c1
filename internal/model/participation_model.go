package model

import (
	"time"
)

// ParticipationModel 参与记录，(launch_id, participant) 唯一
type ParticipationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LaunchId    int64  `json:"launch_id" gorm:"not null;uniqueIndex:idx_participation_launch_participant"`
	Participant string `json:"participant" gorm:"not null;size:42;uniqueIndex:idx_participation_launch_participant"`
	AmountPaid  string `json:"amount_paid" gorm:"not null;size:36"`
	UnitsBought string `json:"units_bought" gorm:"not null;size:36"`
	Purchases   uint32 `json:"purchases" gorm:"default:0"`

	Claimed   bool       `json:"claimed" gorm:"default:false"`
	ClaimedAt *time.Time `json:"claimed_at"`
	Version   uint64     `json:"version" gorm:"not null;default:1"`
}

// TableName 自定义表名
func (ParticipationModel) TableName() string {
	return "participation"
}
