package models

import (
	"time"

	"gorm.io/gorm"
)

type Customer struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name"`
	Comment    string         `gorm:"type:text" json:"comment"`
	Timezone   string         `gorm:"type:varchar(64)" json:"timezone"`
	Currency   string         `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	FixedRate  *float64       `json:"fixed_rate"`
	HourlyRate *float64       `json:"hourly_rate"`
	Visible    bool           `gorm:"not null;default:true" json:"visible"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Projects []Project `gorm:"foreignKey:CustomerID" json:"projects,omitempty"`
}
