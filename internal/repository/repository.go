package repository

import (
	"time"

	"github.com/tquast/kimai2/internal/models"
)

// TimesheetRepository defines the interface for timesheet data access
type TimesheetRepository interface {
	// Create creates a new timesheet entry
	Create(timesheet *models.Timesheet) error

	// FindByID finds a timesheet by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Timesheet, error)

	// List retrieves timesheets with filtering and pagination
	List(filter TimesheetFilter) ([]models.Timesheet, int64, error)

	// Update persists changes to a timesheet
	Update(timesheet *models.Timesheet) error

	// Delete removes a timesheet and its owned children
	Delete(id uint64) error

	// FindRunning returns a user's running entries, oldest first
	FindRunning(userID uint64) ([]models.Timesheet, error)

	// CountRunning counts a user's running entries
	CountRunning(userID uint64) (int64, error)

	// SyncTags replaces the persisted tag set with the entry's current tags
	SyncTags(timesheet *models.Timesheet) error

	// MarkExported flags the given entries as exported
	MarkExported(ids []uint64) (int64, error)

	// SaveMeta persists a single meta field row
	SaveMeta(meta *models.TimesheetMeta) error
}

// TimesheetFilter holds filtering options for listing timesheets
type TimesheetFilter struct {
	UserID     *uint64
	ProjectID  *uint64
	ActivityID *uint64
	Tags       []string
	BeginFrom  *time.Time
	BeginTo    *time.Time
	Exported   *bool
	Running    *bool
	Page       int
	PageSize   int
}

// TagRepository defines the interface for tag data access
type TagRepository interface {
	// List returns all tags ordered by name
	List() ([]models.Tag, error)

	// FindOrCreateByName returns the tag with the given name, creating it
	// on first use
	FindOrCreateByName(name string) (*models.Tag, error)

	// Create creates a new tag
	Create(tag *models.Tag) error

	// Delete removes a tag and its timesheet references
	Delete(id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// Update persists changes to a user
	Update(user *models.User) error
}

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	// Create creates a new customer
	Create(customer *models.Customer) error

	// FindByID finds a customer by ID
	FindByID(id uint64) (*models.Customer, error)

	// List returns visible customers with their projects
	List() ([]models.Customer, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(project *models.Project) error

	// FindByID finds a project by ID with its customer
	FindByID(id uint64) (*models.Project, error)

	// List returns visible projects with their activities
	List() ([]models.Project, error)
}

// ActivityRepository defines the interface for activity data access
type ActivityRepository interface {
	// Create creates a new activity
	Create(activity *models.Activity) error

	// FindByID finds an activity by ID
	FindByID(id uint64) (*models.Activity, error)

	// List returns visible activities usable for a project, including
	// global activities
	List(projectID *uint64) ([]models.Activity, error)
}
