package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(60);uniqueIndex;not null" json:"username"`
	Alias        string         `gorm:"type:varchar(60)" json:"alias"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Timezone     string         `gorm:"type:varchar(64)" json:"timezone"`
	HourlyRate   *float64       `json:"hourly_rate"`
	Enabled      bool           `gorm:"not null;default:true" json:"enabled"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Timesheets []Timesheet `gorm:"foreignKey:UserID" json:"-"`
}
