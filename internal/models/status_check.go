package models

import "time"

type StatusCheck struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClientName string    `gorm:"type:varchar(255);not null" json:"client_name"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}
