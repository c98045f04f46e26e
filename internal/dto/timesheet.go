package dto

import (
	"time"

	"github.com/tquast/kimai2/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID         uint64   `json:"id"`
	Username   string   `json:"username"`
	Alias      string   `json:"alias,omitempty"`
	Timezone   string   `json:"timezone,omitempty"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`
}

// ActivityDTO represents an activity in API responses
type ActivityDTO struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	ProjectID *uint64 `json:"project_id,omitempty"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	CustomerID uint64 `json:"customer_id"`
	Customer   string `json:"customer,omitempty"`
}

// MetaFieldDTO represents an extension attribute in API responses
type MetaFieldDTO struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Visible bool   `json:"visible"`
}

// TimesheetDTO represents a timesheet entry in API responses. Duration is
// the live value for running entries; Rate stays null until computed.
type TimesheetDTO struct {
	ID          uint64         `json:"id"`
	Begin       *time.Time     `json:"begin"`
	End         *time.Time     `json:"end"`
	Timezone    string         `json:"timezone"`
	Duration    int64          `json:"duration"`
	Description string         `json:"description"`
	Rate        *float64       `json:"rate"`
	Exported    bool           `json:"exported"`
	Running     bool           `json:"running"`
	UserID      uint64         `json:"user_id"`
	ProjectID   uint64         `json:"project_id"`
	ActivityID  uint64         `json:"activity_id"`
	Project     *ProjectDTO    `json:"project,omitempty"`
	Activity    *ActivityDTO   `json:"activity,omitempty"`
	Tags        []string       `json:"tags"`
	Meta        []MetaFieldDTO `json:"meta,omitempty"`
}

// TimesheetListResponse represents a paginated list of timesheets
type TimesheetListResponse struct {
	Timesheets []TimesheetDTO `json:"timesheets"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int64          `json:"total_count"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:         user.ID,
		Username:   user.Username,
		Alias:      user.Alias,
		Timezone:   user.Timezone,
		HourlyRate: user.HourlyRate,
	}
}

// ToTimesheetDTO converts a Timesheet model to TimesheetDTO
func ToTimesheetDTO(timesheet models.Timesheet) TimesheetDTO {
	dto := TimesheetDTO{
		ID:          timesheet.ID,
		Begin:       timesheet.GetBegin(),
		End:         timesheet.GetEnd(),
		Timezone:    timesheet.Timezone,
		Duration:    timesheet.GetDuration(),
		Description: timesheet.Description,
		Rate:        timesheet.Rate,
		Exported:    timesheet.Exported,
		Running:     timesheet.IsRunning(),
		UserID:      timesheet.UserID,
		ProjectID:   timesheet.ProjectID,
		ActivityID:  timesheet.ActivityID,
		Tags:        timesheet.TagNames(),
	}

	if timesheet.Project.ID != 0 {
		dto.Project = &ProjectDTO{
			ID:         timesheet.Project.ID,
			Name:       timesheet.Project.Name,
			CustomerID: timesheet.Project.CustomerID,
			Customer:   timesheet.Project.Customer.Name,
		}
	}

	if timesheet.Activity.ID != 0 {
		dto.Activity = &ActivityDTO{
			ID:        timesheet.Activity.ID,
			Name:      timesheet.Activity.Name,
			ProjectID: timesheet.Activity.ProjectID,
		}
	}

	if len(timesheet.Meta) > 0 {
		dto.Meta = make([]MetaFieldDTO, len(timesheet.Meta))
		for i, meta := range timesheet.Meta {
			dto.Meta[i] = MetaFieldDTO{
				Name:    meta.Name,
				Value:   meta.Value,
				Visible: meta.Visible,
			}
		}
	}

	return dto
}

// ToTimesheetListResponse converts a slice of timesheets to TimesheetListResponse
func ToTimesheetListResponse(timesheets []models.Timesheet, page, pageSize int, totalCount int64) TimesheetListResponse {
	items := make([]TimesheetDTO, len(timesheets))
	for i, timesheet := range timesheets {
		items[i] = ToTimesheetDTO(timesheet)
	}

	return TimesheetListResponse{
		Timesheets: items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
	}
}
