package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds the indexes the timesheet list queries depend on
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Timesheet indexes for filtering and sorting
		{"timesheets", "idx_timesheets_user_start", "user_id, start_time"},
		{"timesheets", "idx_timesheets_user_end", "user_id, end_time"},
		{"timesheets", "idx_timesheets_exported", "exported"},

		// Classification lookups
		{"activities", "idx_activities_project_id", "project_id"},
		{"projects", "idx_projects_customer_id", "customer_id"},

		// Tag join table
		{"timesheet_tags", "idx_timesheet_tags_tag_id", "tag_id"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
