package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tquast/kimai2/internal/models"
	"github.com/tquast/kimai2/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTimesheetNotFound       = errors.New("timesheet not found")
	ErrNotTimesheetOwner       = errors.New("timesheet belongs to another user")
	ErrTimesheetExported       = errors.New("exported timesheets cannot be changed")
	ErrTimesheetAlreadyStopped = errors.New("timesheet is already stopped")
	ErrEndBeforeBegin          = errors.New("end must not be before begin")
	ErrNegativeRate            = errors.New("rate must not be negative")
	ErrActivityNotFound        = errors.New("activity not found")
	ErrProjectNotFound         = errors.New("project not found")
	ErrActivityProjectMismatch = errors.New("activity is not usable for this project")
	ErrNoTimesheetIDs          = errors.New("at least one timesheet ID is required")
	ErrMetaNameRequired        = errors.New("meta field name is required")
)

// timesheetPreloads loads everything rate resolution and API responses need.
var timesheetPreloads = []string{
	"User", "Activity", "Project", "Project.Customer", "Tags", "Meta",
}

// TimesheetService handles the timesheet lifecycle: starting and stopping
// the timer, full-interval bookkeeping, export locking.
type TimesheetService struct {
	timesheetRepo repository.TimesheetRepository
	activityRepo  repository.ActivityRepository
	projectRepo   repository.ProjectRepository
	userRepo      repository.UserRepository
	tagRepo       repository.TagRepository
	calculator    models.RateCalculator
	activeLimit   int
}

// NewTimesheetService creates a new TimesheetService. activeLimit bounds
// how many entries a user may have running at once; starting beyond the
// limit stops the oldest running entries first.
func NewTimesheetService(
	timesheetRepo repository.TimesheetRepository,
	activityRepo repository.ActivityRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	tagRepo repository.TagRepository,
	calculator models.RateCalculator,
	activeLimit int,
) *TimesheetService {
	if activeLimit < 1 {
		activeLimit = 1
	}
	return &TimesheetService{
		timesheetRepo: timesheetRepo,
		activityRepo:  activityRepo,
		projectRepo:   projectRepo,
		userRepo:      userRepo,
		tagRepo:       tagRepo,
		calculator:    calculator,
		activeLimit:   activeLimit,
	}
}

// StartTimesheetInput represents input for starting the timer
type StartTimesheetInput struct {
	UserID      uint64
	ProjectID   uint64
	ActivityID  uint64
	Description string
	Tags        []string
}

// CreateTimesheetInput represents input for recording a full interval
type CreateTimesheetInput struct {
	UserID      uint64
	ProjectID   uint64
	ActivityID  uint64
	Begin       time.Time
	End         *time.Time
	Description string
	Tags        []string
	FixedRate   *float64
	HourlyRate  *float64
	Rate        *float64
}

// UpdateTimesheetInput represents input for updating an entry. Nil fields
// are left untouched; ClearEnd reopens a stopped entry.
type UpdateTimesheetInput struct {
	Begin       *time.Time
	End         *time.Time
	ClearEnd    bool
	Description *string
	ProjectID   *uint64
	ActivityID  *uint64
	Tags        *[]string
	FixedRate   *float64
	HourlyRate  *float64
	Rate        *float64
}

// ListTimesheetsInput represents filters for listing a user's entries
type ListTimesheetsInput struct {
	UserID     uint64
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

// StartTimesheet begins a new running entry for the user. The begin
// timestamp is taken in the user's preferred timezone so the entry
// remembers where it was recorded.
func (s *TimesheetService) StartTimesheet(input StartTimesheetInput) (*models.Timesheet, error) {
	user, err := s.userRepo.FindByID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, _, err := s.resolveClassification(input.ProjectID, input.ActivityID); err != nil {
		return nil, err
	}

	if err := s.enforceActiveLimit(input.UserID); err != nil {
		return nil, err
	}

	timesheet := &models.Timesheet{
		UserID:      input.UserID,
		ProjectID:   input.ProjectID,
		ActivityID:  input.ActivityID,
		Description: input.Description,
	}
	timesheet.SetBegin(time.Now().In(s.userLocation(user)))

	if err := s.attachTags(timesheet, input.Tags); err != nil {
		return nil, err
	}

	if err := s.timesheetRepo.Create(timesheet); err != nil {
		return nil, fmt.Errorf("failed to create timesheet: %w", err)
	}

	return s.timesheetRepo.FindByID(timesheet.ID, timesheetPreloads...)
}

// StopTimesheet sets the end timestamp of a running entry and snapshots
// its duration and rate.
func (s *TimesheetService) StopTimesheet(id, actorID uint64) (*models.Timesheet, error) {
	timesheet, err := s.findOwned(id, actorID)
	if err != nil {
		return nil, err
	}

	if timesheet.Exported {
		return nil, ErrTimesheetExported
	}
	if !timesheet.IsRunning() {
		return nil, ErrTimesheetAlreadyStopped
	}

	user, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.applyStop(timesheet, time.Now().In(s.userLocation(user))); err != nil {
		return nil, err
	}

	if err := s.timesheetRepo.Update(timesheet); err != nil {
		return nil, fmt.Errorf("failed to stop timesheet: %w", err)
	}

	return timesheet, nil
}

// CreateTimesheet records a complete entry, optionally already stopped.
func (s *TimesheetService) CreateTimesheet(input CreateTimesheetInput) (*models.Timesheet, error) {
	if _, _, err := s.resolveClassification(input.ProjectID, input.ActivityID); err != nil {
		return nil, err
	}
	if err := validateRates(input.Rate, input.FixedRate, input.HourlyRate); err != nil {
		return nil, err
	}

	timesheet := &models.Timesheet{
		UserID:      input.UserID,
		ProjectID:   input.ProjectID,
		ActivityID:  input.ActivityID,
		Description: input.Description,
		FixedRate:   input.FixedRate,
		HourlyRate:  input.HourlyRate,
		Rate:        input.Rate,
	}
	timesheet.SetBegin(input.Begin)

	if err := s.attachTags(timesheet, input.Tags); err != nil {
		return nil, err
	}

	if input.End != nil {
		if input.End.Before(input.Begin) {
			return nil, ErrEndBeforeBegin
		}
		if input.Rate == nil {
			// Rate snapshot needs the associations loaded
			if err := s.preloadClassification(timesheet); err != nil {
				return nil, err
			}
		}
		if err := s.applyStopWithRate(timesheet, *input.End, input.Rate); err != nil {
			return nil, err
		}
	}

	if err := s.timesheetRepo.Create(timesheet); err != nil {
		return nil, fmt.Errorf("failed to create timesheet: %w", err)
	}

	return s.timesheetRepo.FindByID(timesheet.ID, timesheetPreloads...)
}

// UpdateTimesheet updates an existing entry. Stopped entries get duration
// and rate recomputed; clearing the end reopens the entry and clears both.
func (s *TimesheetService) UpdateTimesheet(id, actorID uint64, input UpdateTimesheetInput) (*models.Timesheet, error) {
	timesheet, err := s.findOwned(id, actorID)
	if err != nil {
		return nil, err
	}

	if timesheet.Exported {
		return nil, ErrTimesheetExported
	}
	if err := validateRates(input.Rate, input.FixedRate, input.HourlyRate); err != nil {
		return nil, err
	}

	if input.ProjectID != nil || input.ActivityID != nil {
		projectID := timesheet.ProjectID
		activityID := timesheet.ActivityID
		if input.ProjectID != nil {
			projectID = *input.ProjectID
		}
		if input.ActivityID != nil {
			activityID = *input.ActivityID
		}
		project, activity, err := s.resolveClassification(projectID, activityID)
		if err != nil {
			return nil, err
		}
		timesheet.ProjectID = projectID
		timesheet.Project = *project
		timesheet.ActivityID = activityID
		timesheet.Activity = *activity
	}

	if input.Description != nil {
		timesheet.Description = *input.Description
	}
	if input.FixedRate != nil {
		timesheet.FixedRate = input.FixedRate
	}
	if input.HourlyRate != nil {
		timesheet.HourlyRate = input.HourlyRate
	}
	if input.Begin != nil {
		timesheet.SetBegin(*input.Begin)
	}

	switch {
	case input.ClearEnd:
		timesheet.SetEnd(nil)
	case input.End != nil:
		if err := s.applyStopWithRate(timesheet, *input.End, input.Rate); err != nil {
			return nil, err
		}
	case !timesheet.IsRunning():
		// Begin, classification or rates may have changed; refresh the
		// snapshot for the stored interval
		if err := s.applyStopWithRate(timesheet, *timesheet.GetEnd(), input.Rate); err != nil {
			return nil, err
		}
	case input.Rate != nil:
		timesheet.Rate = input.Rate
	}

	if input.Tags != nil {
		timesheet.Tags = nil
		if err := s.attachTags(timesheet, *input.Tags); err != nil {
			return nil, err
		}
		if err := s.timesheetRepo.SyncTags(timesheet); err != nil {
			return nil, fmt.Errorf("failed to sync tags: %w", err)
		}
	}

	if err := s.timesheetRepo.Update(timesheet); err != nil {
		return nil, fmt.Errorf("failed to update timesheet: %w", err)
	}

	return s.timesheetRepo.FindByID(timesheet.ID, timesheetPreloads...)
}

// DeleteTimesheet removes an entry unless it has been exported.
func (s *TimesheetService) DeleteTimesheet(id, actorID uint64) error {
	timesheet, err := s.findOwned(id, actorID)
	if err != nil {
		return err
	}

	if timesheet.Exported {
		return ErrTimesheetExported
	}

	if err := s.timesheetRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete timesheet: %w", err)
	}

	return nil
}

// RestartTimesheet starts a fresh running entry with the classification,
// description and tags of an earlier one.
func (s *TimesheetService) RestartTimesheet(id, actorID uint64) (*models.Timesheet, error) {
	source, err := s.findOwned(id, actorID)
	if err != nil {
		return nil, err
	}

	return s.StartTimesheet(StartTimesheetInput{
		UserID:      actorID,
		ProjectID:   source.ProjectID,
		ActivityID:  source.ActivityID,
		Description: source.Description,
		Tags:        source.TagNames(),
	})
}

// GetTimesheet returns an entry with all relations loaded.
func (s *TimesheetService) GetTimesheet(id, actorID uint64) (*models.Timesheet, error) {
	return s.findOwned(id, actorID)
}

// GetActiveTimesheets returns the user's running entries, oldest first.
func (s *TimesheetService) GetActiveTimesheets(userID uint64) ([]models.Timesheet, error) {
	timesheets, err := s.timesheetRepo.FindRunning(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch running timesheets: %w", err)
	}
	return timesheets, nil
}

// ListTimesheets returns the user's entries matching the filters.
func (s *TimesheetService) ListTimesheets(input ListTimesheetsInput) ([]models.Timesheet, int64, error) {
	filter := repository.TimesheetFilter{
		UserID:     &input.UserID,
		ProjectID:  input.ProjectID,
		ActivityID: input.ActivityID,
		Tags:       input.Tags,
		BeginFrom:  input.BeginFrom,
		BeginTo:    input.BeginTo,
		Exported:   input.Exported,
		Running:    input.Running,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}

	timesheets, total, err := s.timesheetRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list timesheets: %w", err)
	}

	return timesheets, total, nil
}

// MarkExported flags the actor's entries as exported, locking them against
// further changes. Entries that are still running cannot be exported.
func (s *TimesheetService) MarkExported(ids []uint64, actorID uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoTimesheetIDs
	}

	exportable := make([]uint64, 0, len(ids))
	for _, id := range ids {
		timesheet, err := s.findOwned(id, actorID)
		if err != nil {
			return 0, err
		}
		if timesheet.IsRunning() {
			continue
		}
		exportable = append(exportable, id)
	}

	if len(exportable) == 0 {
		return 0, nil
	}

	count, err := s.timesheetRepo.MarkExported(exportable)
	if err != nil {
		return 0, fmt.Errorf("failed to mark timesheets exported: %w", err)
	}

	return count, nil
}

// SetMetaField upserts a name-keyed extension attribute on an entry.
func (s *TimesheetService) SetMetaField(id, actorID uint64, field models.TimesheetMeta) (*models.Timesheet, error) {
	if strings.TrimSpace(field.Name) == "" {
		return nil, ErrMetaNameRequired
	}

	timesheet, err := s.findOwned(id, actorID)
	if err != nil {
		return nil, err
	}

	if timesheet.Exported {
		return nil, ErrTimesheetExported
	}

	timesheet.SetMetaField(field)

	saved := timesheet.GetMetaField(field.Name)
	saved.TimesheetID = timesheet.ID
	if err := s.timesheetRepo.SaveMeta(saved); err != nil {
		return nil, fmt.Errorf("failed to save meta field: %w", err)
	}

	return timesheet, nil
}

// findOwned loads an entry with relations and verifies ownership. Foreign
// entries are reported as not found to avoid leaking their existence.
func (s *TimesheetService) findOwned(id, actorID uint64) (*models.Timesheet, error) {
	timesheet, err := s.timesheetRepo.FindByID(id, timesheetPreloads...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimesheetNotFound
		}
		return nil, fmt.Errorf("failed to find timesheet: %w", err)
	}

	if timesheet.UserID != actorID {
		return nil, ErrTimesheetNotFound
	}

	return timesheet, nil
}

// applyStop closes the interval and snapshots duration and rate.
func (s *TimesheetService) applyStop(timesheet *models.Timesheet, end time.Time) error {
	return s.applyStopWithRate(timesheet, end, nil)
}

// applyStopWithRate closes the interval, snapshots the duration and either
// stores the manual rate override or recomputes the rate.
func (s *TimesheetService) applyStopWithRate(timesheet *models.Timesheet, end time.Time, override *float64) error {
	begin := timesheet.GetBegin()
	if begin == nil || end.Before(*begin) {
		return ErrEndBeforeBegin
	}

	timesheet.SetEnd(&end)
	timesheet.Duration = int64(end.Sub(*begin).Seconds())

	if override != nil {
		timesheet.Rate = override
		return nil
	}

	// A previously snapshotted rate would win inside GetRate; drop it so
	// the changed interval is priced again.
	timesheet.Rate = nil
	rate := timesheet.GetRate(s.calculator)
	timesheet.Rate = &rate
	return nil
}

// enforceActiveLimit stops the oldest running entries until a new one fits
// under the configured limit.
func (s *TimesheetService) enforceActiveLimit(userID uint64) error {
	running, err := s.timesheetRepo.FindRunning(userID)
	if err != nil {
		return fmt.Errorf("failed to fetch running timesheets: %w", err)
	}

	for len(running) >= s.activeLimit {
		oldest := running[0]
		if err := s.applyStop(&oldest, time.Now()); err != nil {
			return err
		}
		if err := s.timesheetRepo.Update(&oldest); err != nil {
			return fmt.Errorf("failed to stop running timesheet: %w", err)
		}
		running = running[1:]
	}

	return nil
}

// resolveClassification validates that the project exists and the activity
// is either global or bound to that project.
func (s *TimesheetService) resolveClassification(projectID, activityID uint64) (*models.Project, *models.Activity, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to find project: %w", err)
	}

	activity, err := s.activityRepo.FindByID(activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrActivityNotFound
		}
		return nil, nil, fmt.Errorf("failed to find activity: %w", err)
	}

	if activity.ProjectID != nil && *activity.ProjectID != project.ID {
		return nil, nil, ErrActivityProjectMismatch
	}

	return project, activity, nil
}

// preloadClassification fills the association fields rate resolution reads.
func (s *TimesheetService) preloadClassification(timesheet *models.Timesheet) error {
	project, activity, err := s.resolveClassification(timesheet.ProjectID, timesheet.ActivityID)
	if err != nil {
		return err
	}
	timesheet.Project = *project
	timesheet.Activity = *activity

	user, err := s.userRepo.FindByID(timesheet.UserID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	timesheet.User = *user

	return nil
}

// attachTags resolves tag names to entities and attaches them.
func (s *TimesheetService) attachTags(timesheet *models.Timesheet, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := s.tagRepo.FindOrCreateByName(name)
		if err != nil {
			return fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		timesheet.AddTag(tag)
	}
	return nil
}

// userLocation returns the user's preferred timezone, falling back to UTC.
func (s *TimesheetService) userLocation(user *models.User) *time.Location {
	if user.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateRates(rates ...*float64) error {
	for _, rate := range rates {
		if rate != nil && *rate < 0 {
			return ErrNegativeRate
		}
	}
	return nil
}
