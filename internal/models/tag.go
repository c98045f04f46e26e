package models

type Tag struct {
	ID    uint64 `gorm:"primarykey" json:"id"`
	Name  string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Color string `gorm:"type:varchar(7)" json:"color"`

	// Relations
	Timesheets []*Timesheet `gorm:"many2many:timesheet_tags" json:"-"`
}

// sameTag reports whether two tags refer to the same entity. Unsaved tags
// are matched by name, which is unique.
func sameTag(a, b *Tag) bool {
	if a == b {
		return true
	}
	if a.ID != 0 && a.ID == b.ID {
		return true
	}
	return a.Name != "" && a.Name == b.Name
}

func (tg *Tag) addTimesheet(t *Timesheet) {
	for _, existing := range tg.Timesheets {
		if existing == t {
			return
		}
	}
	tg.Timesheets = append(tg.Timesheets, t)
}

func (tg *Tag) removeTimesheet(t *Timesheet) {
	for i, existing := range tg.Timesheets {
		if existing == t {
			tg.Timesheets = append(tg.Timesheets[:i], tg.Timesheets[i+1:]...)
			return
		}
	}
}
