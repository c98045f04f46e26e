package models

// TimesheetMeta is a name/value extension attribute attached to a timesheet.
type TimesheetMeta struct {
	ID          uint64 `gorm:"primarykey" json:"-"`
	TimesheetID uint64 `gorm:"not null;uniqueIndex:idx_timesheet_meta_name" json:"-"`
	Name        string `gorm:"type:varchar(50);not null;uniqueIndex:idx_timesheet_meta_name" json:"name"`
	Value       string `gorm:"type:varchar(255)" json:"value"`
	Visible     bool   `gorm:"not null;default:false" json:"visible"`
}

// merge copies the mutable parts of another field with the same name.
func (m *TimesheetMeta) merge(other TimesheetMeta) {
	m.Value = other.Value
	m.Visible = other.Visible
}
