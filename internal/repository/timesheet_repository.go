package repository

import (
	"github.com/tquast/kimai2/internal/database"
	"github.com/tquast/kimai2/internal/models"
	"github.com/tquast/kimai2/internal/utils"
	"gorm.io/gorm"
)

// GormTimesheetRepository is a GORM implementation of TimesheetRepository
type GormTimesheetRepository struct {
	db *gorm.DB
}

// NewTimesheetRepository creates a new TimesheetRepository
func NewTimesheetRepository(db *gorm.DB) TimesheetRepository {
	return &GormTimesheetRepository{db: db}
}

// Create creates a new timesheet entry
func (r *GormTimesheetRepository) Create(timesheet *models.Timesheet) error {
	return r.db.Create(timesheet).Error
}

// FindByID finds a timesheet by ID with optional preloading
func (r *GormTimesheetRepository) FindByID(id uint64, preload ...string) (*models.Timesheet, error) {
	var timesheet models.Timesheet
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&timesheet, id).Error; err != nil {
		return nil, err
	}

	return &timesheet, nil
}

// List retrieves timesheets with filtering and pagination
func (r *GormTimesheetRepository) List(filter TimesheetFilter) ([]models.Timesheet, int64, error) {
	var timesheets []models.Timesheet

	query := r.db.Model(&models.Timesheet{})

	if filter.UserID != nil {
		query = query.Where("timesheets.user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("timesheets.project_id = ?", *filter.ProjectID)
	}
	if filter.ActivityID != nil {
		query = query.Where("timesheets.activity_id = ?", *filter.ActivityID)
	}
	if filter.BeginFrom != nil {
		query = query.Where("timesheets.start_time >= ?", *filter.BeginFrom)
	}
	if filter.BeginTo != nil {
		query = query.Where("timesheets.start_time < ?", *filter.BeginTo)
	}
	if filter.Exported != nil {
		query = query.Where("timesheets.exported = ?", *filter.Exported)
	}
	if filter.Running != nil {
		if *filter.Running {
			query = query.Where("timesheets.end_time IS NULL")
		} else {
			query = query.Where("timesheets.end_time IS NOT NULL")
		}
	}
	if len(filter.Tags) > 0 {
		tagSubQuery := r.db.Model(&models.Tag{}).
			Select("1").
			Joins("JOIN timesheet_tags ON timesheet_tags.tag_id = tags.id").
			Where("timesheet_tags.timesheet_id = timesheets.id").
			Where("tags.name IN ?", filter.Tags)
		query = query.Where("EXISTS (?)", tagSubQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("timesheets.start_time DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   filter.Page,
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	if err := listQuery.
		Preload("Activity").
		Preload("Project").
		Preload("Project.Customer").
		Preload("Tags").
		Find(&timesheets).Error; err != nil {
		return nil, 0, err
	}

	return timesheets, total, nil
}

// Update persists changes to a timesheet
func (r *GormTimesheetRepository) Update(timesheet *models.Timesheet) error {
	return r.db.Save(timesheet).Error
}

// Delete removes a timesheet together with its meta fields and tag links
func (r *GormTimesheetRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("timesheet_id = ?", id).Delete(&models.TimesheetMeta{}).Error; err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM timesheet_tags WHERE timesheet_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Timesheet{}, id).Error
	})
}

// FindRunning returns a user's running entries, oldest first
func (r *GormTimesheetRepository) FindRunning(userID uint64) ([]models.Timesheet, error) {
	var timesheets []models.Timesheet
	if err := r.db.
		Preload("Activity").
		Preload("Project").
		Preload("Project.Customer").
		Preload("User").
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time ASC").
		Find(&timesheets).Error; err != nil {
		return nil, err
	}
	return timesheets, nil
}

// CountRunning counts a user's running entries
func (r *GormTimesheetRepository) CountRunning(userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Timesheet{}).
		Where("user_id = ? AND end_time IS NULL", userID).
		Count(&count).Error
	return count, err
}

// SyncTags replaces the persisted tag set with the entry's current tags
func (r *GormTimesheetRepository) SyncTags(timesheet *models.Timesheet) error {
	return r.db.Model(timesheet).Association("Tags").Replace(timesheet.Tags)
}

// SaveMeta persists a single meta field row
func (r *GormTimesheetRepository) SaveMeta(meta *models.TimesheetMeta) error {
	return r.db.Save(meta).Error
}

// MarkExported flags the given entries as exported and returns how many
// rows were affected
func (r *GormTimesheetRepository) MarkExported(ids []uint64) (int64, error) {
	result := r.db.Model(&models.Timesheet{}).
		Where("id IN ? AND exported = ?", ids, false).
		Update("exported", true)
	return result.RowsAffected, result.Error
}
