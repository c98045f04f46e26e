package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(150);not null" json:"name"`
	Comment     string         `gorm:"type:text" json:"comment"`
	OrderNumber string         `gorm:"type:varchar(20)" json:"order_number"`
	CustomerID  uint64         `gorm:"not null;index" json:"customer_id"`
	FixedRate   *float64       `json:"fixed_rate"`
	HourlyRate  *float64       `json:"hourly_rate"`
	Visible     bool           `gorm:"not null;default:true" json:"visible"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Customer   Customer   `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	Activities []Activity `gorm:"foreignKey:ProjectID" json:"activities,omitempty"`
}
