package repository

import (
	"github.com/yukikurage/bounty-flow-api/internal/models"
	"github.com/yukikurage/bounty-flow-api/internal/utils"
)

// Store groups the repositories that share one database session. Work passed
// to Transaction sees a Store bound to the transaction.
type Store interface {
	Tasks() TaskRepository
	Counters() CounterRepository
	Users() UserRepository

	// Transaction runs fn atomically. Any error returned by fn rolls back
	// every write made through the transactional Store.
	Transaction(fn func(tx Store) error) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a new task with its ID already assigned
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// FindByIDForUpdate finds a task by ID and locks its row until the
	// surrounding transaction ends
	FindByIDForUpdate(id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update replaces the stored record
	Update(task *models.Task) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	CreatorID    *uint64
	FreelancerID *uint64
	Status       *models.TaskStatus
	Pagination   utils.PaginationParams
}

// CounterRepository defines the interface for named sequences
type CounterRepository interface {
	// Next increments the named counter and returns the new value. The
	// counter row stays locked until the surrounding transaction ends.
	Next(name string) (uint64, error)

	// Current returns the counter value, or zero if it has never advanced
	Current(name string) (uint64, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}
