package models

import "time"

type User struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email          string    `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	Username       string    `gorm:"type:varchar(50);not null" json:"username"`
	HashedPassword string    `gorm:"type:varchar(100);not null" json:"-"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
