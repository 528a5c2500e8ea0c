package types

import (
	"time"
)

type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type ApiKey struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	KeyHash   string    `gorm:"uniqueIndex;column:key_hash" json:"-"` // sha256 hex of the raw token
	Role      string    `gorm:"not null;column:role" json:"role"`     // admin|worker
	UserID    string    `gorm:"column:user_id;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ApiKey) TableName() string { return "api_keys" }
