// Package rate resolves billing rates for timesheet entries from their
// associations: the entry itself wins over its activity, the activity over
// its project, the project over its customer, and the customer over the
// owning user's preference and the configured default.
package rate

import (
	"time"

	"github.com/tquast/kimai2/internal/models"
)

// Calculator implements models.RateCalculator.
type Calculator struct {
	defaultHourlyRate float64
	weekendFactor     float64
}

// NewCalculator creates a Calculator with the configured fallback hourly
// rate and the multiplier applied to entries starting on a weekend.
func NewCalculator(defaultHourlyRate, weekendFactor float64) *Calculator {
	if weekendFactor <= 0 {
		weekendFactor = 1
	}
	return &Calculator{
		defaultHourlyRate: defaultHourlyRate,
		weekendFactor:     weekendFactor,
	}
}

// FindFixedRate returns the first fixed rate defined along the resolution
// chain, or nil when hourly calculation should apply. An explicit zero is
// honored as a free entry.
func (c *Calculator) FindFixedRate(t *models.Timesheet) *float64 {
	candidates := []*float64{
		t.FixedRate,
		t.Activity.FixedRate,
		t.Project.FixedRate,
		t.Project.Customer.FixedRate,
	}
	for _, rate := range candidates {
		if rate != nil {
			return rate
		}
	}
	return nil
}

// FindHourlyRate returns the hourly rate applicable to the entry, falling
// back to the configured default when no association defines one.
func (c *Calculator) FindHourlyRate(t *models.Timesheet) float64 {
	candidates := []*float64{
		t.HourlyRate,
		t.Activity.HourlyRate,
		t.Project.HourlyRate,
		t.Project.Customer.HourlyRate,
		t.User.HourlyRate,
	}
	for _, rate := range candidates {
		if rate != nil {
			return *rate
		}
	}
	return c.defaultHourlyRate
}

// RateFactor returns the weekend multiplier when the entry begins on a
// Saturday or Sunday, otherwise 1.
func (c *Calculator) RateFactor(t *models.Timesheet) float64 {
	if t.Begin == nil {
		return 1
	}
	switch t.Begin.Weekday() {
	case time.Saturday, time.Sunday:
		return c.weekendFactor
	}
	return 1
}
