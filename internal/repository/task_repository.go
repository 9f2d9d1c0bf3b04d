package repository

import (
	"github.com/yukikurage/bounty-flow-api/internal/database"
	"github.com/yukikurage/bounty-flow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Omit(clause.Associations).Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// FindByIDForUpdate finds a task by ID with a row lock
func (r *GormTaskRepository) FindByIDForUpdate(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	var total int64
	if err := r.db.Model(&models.Task{}).Scopes(filter.apply).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := r.db.Model(&models.Task{}).Scopes(filter.apply).Order("tasks.id ASC")
	if filter.Pagination.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(filter.Pagination))
	}

	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// apply adds the filter's WHERE clauses to a query
func (f TaskFilter) apply(db *gorm.DB) *gorm.DB {
	if f.CreatorID != nil {
		db = db.Where("tasks.creator_id = ?", *f.CreatorID)
	}
	if f.FreelancerID != nil {
		// freelancer_id holds the creator until the first submission
		db = db.Where("tasks.freelancer_id = ? AND tasks.status <> ?", *f.FreelancerID, models.TaskStatusPending)
	}
	if f.Status != nil {
		db = db.Where("tasks.status = ?", *f.Status)
	}
	return db
}

// Update replaces the stored task record
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Omit(clause.Associations).Save(task).Error
}
