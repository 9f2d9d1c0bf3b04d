package database

import (
	"fmt"

	"github.com/yukikurage/bounty-flow-api/internal/constants"
	"github.com/yukikurage/bounty-flow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureIndexes creates the lookup indexes declared on the models when the
// dialect skipped them during AutoMigrate.
func EnsureIndexes(db *gorm.DB) error {
	indexes := []struct {
		model any
		name  string
	}{
		{&models.Task{}, "idx_tasks_creator_status"},
		{&models.Task{}, "idx_tasks_freelancer_status"},
		{&models.User{}, "idx_users_username"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := migrator.CreateIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// SeedCounters inserts every counter row at zero. Existing rows are left
// untouched so that re-running migrations never rewinds a sequence.
func SeedCounters(db *gorm.DB) error {
	counter := models.Counter{Name: constants.TaskCounterName, Value: 0}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error
	if err != nil {
		return fmt.Errorf("failed to seed counter %s: %w", counter.Name, err)
	}
	return nil
}

// MigrateDatabase runs all database migrations
func MigrateDatabase(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Counter{},
		&models.Task{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := EnsureIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return SeedCounters(db)
}
