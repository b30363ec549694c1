package model

import (
	"time"
)

// CiphertextModel 协处理器密文
type CiphertextModel struct {
	Handle    string    `json:"handle" gorm:"primaryKey;size:36"`
	Sealed    []byte    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 自定义表名
func (CiphertextModel) TableName() string {
	return "ciphertext"
}

// CiphertextGrantModel 密文解密授权
type CiphertextGrantModel struct {
	Handle    string    `json:"handle" gorm:"primaryKey;size:36"`
	Principal string    `json:"principal" gorm:"primaryKey;size:42"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 自定义表名
func (CiphertextGrantModel) TableName() string {
	return "ciphertext_grant"
}
