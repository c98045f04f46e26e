package repository

import (
	"errors"

	"github.com/tquast/kimai2/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTagRepository is a GORM implementation of TagRepository
type GormTagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &GormTagRepository{db: db}
}

// List returns all tags ordered by name
func (r *GormTagRepository) List() ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// FindOrCreateByName returns the tag with the given name, creating it on
// first use
func (r *GormTagRepository) FindOrCreateByName(name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag = models.Tag{Name: name}
	if err := r.db.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&tag).Error; err != nil {
		return nil, err
	}

	// A concurrent insert may have won the conflict clause
	if tag.ID == 0 {
		if err := r.db.Where("name = ?", name).First(&tag).Error; err != nil {
			return nil, err
		}
	}

	return &tag, nil
}

// Create creates a new tag
func (r *GormTagRepository) Create(tag *models.Tag) error {
	return r.db.Create(tag).Error
}

// Delete removes a tag and its timesheet references
func (r *GormTagRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM timesheet_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Tag{}, id).Error
	})
}
