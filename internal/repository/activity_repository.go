package repository

import (
	"github.com/tquast/kimai2/internal/models"
	"gorm.io/gorm"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

// Create creates a new activity
func (r *GormActivityRepository) Create(activity *models.Activity) error {
	return r.db.Create(activity).Error
}

// FindByID finds an activity by ID
func (r *GormActivityRepository) FindByID(id uint64) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.Preload("Project").Preload("Project.Customer").First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

// List returns visible activities usable for a project, including global
// activities
func (r *GormActivityRepository) List(projectID *uint64) ([]models.Activity, error) {
	var activities []models.Activity
	query := r.db.Where("visible = ?", true)

	if projectID != nil {
		query = query.Where("project_id = ? OR project_id IS NULL", *projectID)
	}

	if err := query.Order("name ASC").Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
