package models

import (
	"time"

	"gorm.io/gorm"
)

// Activity may be bound to a single project or, with a nil ProjectID,
// usable across all projects.
type Activity struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name"`
	Comment    string         `gorm:"type:text" json:"comment"`
	ProjectID  *uint64        `gorm:"index" json:"project_id"`
	FixedRate  *float64       `json:"fixed_rate"`
	HourlyRate *float64       `json:"hourly_rate"`
	Visible    bool           `gorm:"not null;default:true" json:"visible"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
}
