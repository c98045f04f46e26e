package models

import (
	"strings"
	"time"

	"github.com/tquast/kimai2/internal/utils"
)

// RateCalculator resolves billing rates from a timesheet's associations.
// The concrete implementation lives outside the model layer.
type RateCalculator interface {
	// FindFixedRate returns a flat rate overriding hourly calculation,
	// or nil if none applies. An explicit zero is a valid (free) rate.
	FindFixedRate(t *Timesheet) *float64

	// FindHourlyRate returns the hourly rate applicable to the entry.
	FindHourlyRate(t *Timesheet) float64

	// RateFactor returns the multiplier applied to the hourly rate.
	RateFactor(t *Timesheet) float64
}

// Timesheet is one recorded (or in-progress) work interval for a user
// against a project/activity. End is nil while the timer is running.
type Timesheet struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Begin       *time.Time `gorm:"column:start_time;not null;index" json:"begin" binding:"required"`
	End         *time.Time `gorm:"column:end_time;index" json:"end"`
	Timezone    string     `gorm:"type:varchar(64);not null;default:''" json:"timezone"`
	Duration    int64      `gorm:"not null;default:0" json:"duration"`
	Description string     `gorm:"type:text" json:"description"`
	Rate        *float64   `json:"rate"`
	FixedRate   *float64   `json:"fixed_rate"`
	HourlyRate  *float64   `json:"hourly_rate"`
	Exported    bool       `gorm:"not null;default:false" json:"exported"`
	UserID      uint64     `gorm:"not null;index" json:"user_id"`
	ActivityID  uint64     `gorm:"not null;index" json:"activity_id"`
	ProjectID   uint64     `gorm:"not null;index" json:"project_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	User     User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Activity Activity        `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"activity,omitempty"`
	Project  Project         `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	Tags     []*Tag          `gorm:"many2many:timesheet_tags" json:"tags,omitempty"`
	Meta     []TimesheetMeta `gorm:"foreignKey:TimesheetID" json:"meta,omitempty"`

	// localized guards the one-shot timezone application after load.
	localized bool
}

// GetBegin returns the start timestamp, localized to the stored timezone.
func (t *Timesheet) GetBegin() *time.Time {
	t.localize()
	return t.Begin
}

// GetEnd returns the end timestamp, localized to the stored timezone.
// It is nil while the entry is running.
func (t *Timesheet) GetEnd() *time.Time {
	t.localize()
	return t.End
}

// localize converts begin/end into the stored timezone exactly once per
// loaded instance. Timestamps come back from the database in the
// connection's location; the entry remembers the zone it was recorded in.
func (t *Timesheet) localize() {
	if t.localized {
		return
	}
	t.localized = true

	if t.Timezone == "" {
		return
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return
	}
	if t.Begin != nil {
		begin := t.Begin.In(loc)
		t.Begin = &begin
	}
	if t.End != nil {
		end := t.End.In(loc)
		t.End = &end
	}
}

// SetBegin stores the start timestamp and adopts its timezone.
func (t *Timesheet) SetBegin(begin time.Time) {
	t.Begin = &begin
	t.Timezone = begin.Location().String()
}

// SetEnd stores the end timestamp and adopts its timezone. Passing nil
// reopens the entry and clears the computed duration and rate.
func (t *Timesheet) SetEnd(end *time.Time) {
	t.End = end
	if end == nil {
		t.Duration = 0
		t.Rate = nil
		return
	}
	t.Timezone = end.Location().String()
}

// IsRunning reports whether the entry has no end timestamp yet.
func (t *Timesheet) IsRunning() bool {
	return t.End == nil
}

// GetDuration returns the stored duration in seconds. For a running entry
// without a stored duration it returns the elapsed time since begin,
// recomputed on every call. That live value is never persisted and is only
// reliable for displaying running entries.
func (t *Timesheet) GetDuration() int64 {
	if t.Duration == 0 && t.Begin != nil {
		elapsed := int64(time.Since(*t.Begin).Seconds())
		if elapsed < 0 {
			return 0
		}
		return elapsed
	}
	return t.Duration
}

// GetRate returns the stored rate when one has been set (a manual override
// or a previously computed value, including an explicit 0). Otherwise it
// resolves a fixed rate first and falls back to hourly rate times factor
// over the entry's duration.
func (t *Timesheet) GetRate(calc RateCalculator) float64 {
	if t.Rate != nil {
		return *t.Rate
	}
	if calc == nil {
		return 0
	}
	if fixed := calc.FindFixedRate(t); fixed != nil {
		return *fixed
	}
	hourly := calc.FindHourlyRate(t) * calc.RateFactor(t)
	return utils.CalculateRate(hourly, t.GetDuration())
}

// AddTag attaches a tag and updates the tag's back-reference. Adding a tag
// that is already attached is a no-op.
func (t *Timesheet) AddTag(tag *Tag) {
	for _, existing := range t.Tags {
		if sameTag(existing, tag) {
			return
		}
	}
	t.Tags = append(t.Tags, tag)
	tag.addTimesheet(t)
}

// RemoveTag detaches a tag and updates the tag's back-reference. Removing
// an absent tag is a no-op.
func (t *Timesheet) RemoveTag(tag *Tag) {
	for i, existing := range t.Tags {
		if sameTag(existing, tag) {
			t.Tags = append(t.Tags[:i], t.Tags[i+1:]...)
			existing.removeTimesheet(t)
			return
		}
	}
}

// TagNames returns the names of all attached tags.
func (t *Timesheet) TagNames() []string {
	names := make([]string, len(t.Tags))
	for i, tag := range t.Tags {
		names[i] = tag.Name
	}
	return names
}

// GetMetaField returns the meta field with the given name, or nil. Names
// are matched case-insensitively.
func (t *Timesheet) GetMetaField(name string) *TimesheetMeta {
	for i := range t.Meta {
		if strings.EqualFold(t.Meta[i].Name, name) {
			return &t.Meta[i]
		}
	}
	return nil
}

// SetMetaField attaches a new meta field bound to this entry, or merges
// the value into an existing field with the same name.
func (t *Timesheet) SetMetaField(field TimesheetMeta) {
	if existing := t.GetMetaField(field.Name); existing != nil {
		existing.merge(field)
		return
	}
	field.TimesheetID = t.ID
	t.Meta = append(t.Meta, field)
}
