package repository

import (
	"errors"
	"fmt"

	"github.com/yukikurage/bounty-flow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCounterRepository is a GORM implementation of CounterRepository
type GormCounterRepository struct {
	db *gorm.DB
}

// NewCounterRepository creates a new CounterRepository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &GormCounterRepository{db: db}
}

// Next increments the named counter. Call it inside a transaction: the row
// lock only protects the read-increment-write while the transaction is open.
func (r *GormCounterRepository) Next(name string) (uint64, error) {
	var counter models.Counter
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&counter).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		counter = models.Counter{Name: name, Value: 1}
		if err := r.db.Create(&counter).Error; err != nil {
			return 0, fmt.Errorf("create counter %s: %w", name, err)
		}
		return counter.Value, nil
	case err != nil:
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}

	next := counter.Value + 1
	result := r.db.Model(&models.Counter{}).
		Where("name = ? AND value = ?", name, counter.Value).
		Update("value", next)
	if result.Error != nil {
		return 0, fmt.Errorf("advance counter %s: %w", name, result.Error)
	}
	if result.RowsAffected != 1 {
		return 0, fmt.Errorf("advance counter %s: concurrent update detected", name)
	}

	return next, nil
}

// Current returns the counter value without modifying it
func (r *GormCounterRepository) Current(name string) (uint64, error) {
	var counter models.Counter
	err := r.db.Where("name = ?", name).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	return counter.Value, nil
}
