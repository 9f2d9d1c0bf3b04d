package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/yukikurage/bounty-flow-api/internal/auth"
	"github.com/yukikurage/bounty-flow-api/internal/constants"
	"github.com/yukikurage/bounty-flow-api/internal/locks"
	"github.com/yukikurage/bounty-flow-api/internal/models"
	"github.com/yukikurage/bounty-flow-api/internal/repository"
	"github.com/yukikurage/bounty-flow-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrAlreadyCompleted = errors.New("work has already been submitted for this task")
	ErrNotCompleted     = errors.New("work has not been submitted for this task")
	ErrAlreadyPaid      = errors.New("funds have already been released for this task")
	ErrUnauthorized     = errors.New("caller is not authorized for this action")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
)

// BountyService runs the bounty lifecycle: pending, completed, paid.
type BountyService struct {
	store     repository.Store
	guard     auth.Guard
	aiService *AIService
	locks     *locks.KeyedMutex
	now       func() time.Time
	logger    *slog.Logger
}

// NewBountyService creates a new BountyService. aiService may be nil.
func NewBountyService(store repository.Store, guard auth.Guard, aiService *AIService) *BountyService {
	return &BountyService{
		store:     store,
		guard:     guard,
		aiService: aiService,
		locks:     locks.NewKeyedMutex(),
		now:       time.Now,
		logger:    slog.Default().With("component", "bounty"),
	}
}

// TaskSummary is the public projection of a task
type TaskSummary struct {
	Title  string
	Status string
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	CreatorID    *uint64
	FreelancerID *uint64
	Status       *models.TaskStatus
	Pagination   utils.PaginationParams
}

// CreateTask posts a new bounty on behalf of creator and returns its ID
func (s *BountyService) CreateTask(ctx context.Context, creator uint64, title string, amount int64) (uint64, error) {
	if _, err := s.authenticate(ctx, creator); err != nil {
		return 0, err
	}

	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	unlock := s.locks.Lock("counter:" + constants.TaskCounterName)
	defer unlock()

	var taskID uint64
	err := s.store.Transaction(func(tx repository.Store) error {
		id, err := tx.Counters().Next(constants.TaskCounterName)
		if err != nil {
			return err
		}

		task := &models.Task{
			ID:           id,
			CreatorID:    creator,
			FreelancerID: creator,
			Title:        title,
			Amount:       amount,
			Status:       models.TaskStatusPending,
		}
		if err := tx.Tasks().Create(task); err != nil {
			return err
		}

		taskID = id
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created", "task_id", taskID, "creator_id", creator, "amount", amount)
	return taskID, nil
}

// SubmitWork records freelancer's submission. The first submission wins;
// any later one fails regardless of who makes it.
func (s *BountyService) SubmitWork(ctx context.Context, taskID, freelancer uint64) (bool, error) {
	if _, err := s.authenticate(ctx, freelancer); err != nil {
		return false, err
	}

	err := s.transition(taskID, func(task *models.Task) error {
		if task.Status != models.TaskStatusPending {
			return ErrAlreadyCompleted
		}

		now := s.now()
		task.FreelancerID = freelancer
		task.Status = models.TaskStatusCompleted
		task.CompletedAt = &now
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("work submitted", "task_id", taskID, "freelancer_id", freelancer)
	return true, nil
}

// ReleaseFunds marks a completed task as paid. Only the task's creator may
// release, and only once.
func (s *BountyService) ReleaseFunds(ctx context.Context, taskID, creator uint64) (bool, error) {
	if _, err := s.authenticate(ctx, creator); err != nil {
		return false, err
	}

	err := s.transition(taskID, func(task *models.Task) error {
		if task.CreatorID != creator {
			return ErrUnauthorized
		}
		switch task.Status {
		case models.TaskStatusPending:
			return ErrNotCompleted
		case models.TaskStatusPaid:
			return ErrAlreadyPaid
		}

		now := s.now()
		task.Status = models.TaskStatusPaid
		task.PaidAt = &now
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("funds released", "task_id", taskID, "creator_id", creator)
	return true, nil
}

// GetTask returns the title and status label of a task. An unknown ID yields
// a nil summary and no error.
func (s *BountyService) GetTask(taskID uint64) (*TaskSummary, error) {
	task, err := s.store.Tasks().FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return &TaskSummary{
		Title:  task.Title,
		Status: StatusLabel(task.Status),
	}, nil
}

// GetTaskDetail returns the full task record with its participants
func (s *BountyService) GetTaskDetail(taskID uint64) (*models.Task, error) {
	task, err := s.store.Tasks().FindByID(taskID, "Creator", "Freelancer")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// ListTasks returns tasks matching the provided filters
func (s *BountyService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	tasks, total, err := s.store.Tasks().List(repository.TaskFilter{
		CreatorID:    input.CreatorID,
		FreelancerID: input.FreelancerID,
		Status:       input.Status,
		Pagination:   input.Pagination,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// TaskCount returns how many task IDs have been issued
func (s *BountyService) TaskCount() (uint64, error) {
	count, err := s.store.Counters().Current(constants.TaskCounterName)
	if err != nil {
		return 0, fmt.Errorf("failed to read task counter: %w", err)
	}
	return count, nil
}

// StatusLabel maps a status to its public label
func StatusLabel(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusPaid:
		return "paid"
	case models.TaskStatusCompleted:
		return "completed"
	default:
		return "pending"
	}
}

// authenticate runs the guard and folds its failures into ErrUnauthorized
func (s *BountyService) authenticate(ctx context.Context, claimed uint64) (uint64, error) {
	principal, err := s.guard.Authenticate(ctx, claimed)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return principal, nil
}

// transition loads a task under lock, lets apply validate and mutate it, and
// persists the result. Nothing is written when apply fails.
func (s *BountyService) transition(taskID uint64, apply func(task *models.Task) error) error {
	unlock := s.locks.Lock("task:" + strconv.FormatUint(taskID, 10))
	defer unlock()

	err := s.store.Transaction(func(tx repository.Store) error {
		task, err := tx.Tasks().FindByIDForUpdate(taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}

		before := task.Status
		if err := apply(task); err != nil {
			return err
		}
		if !before.CanTransitionTo(task.Status) {
			return fmt.Errorf("illegal transition %s -> %s", before, task.Status)
		}

		if err := tx.Tasks().Update(task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	return err
}
