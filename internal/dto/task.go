package dto

import (
	"time"

	"github.com/yukikurage/bounty-flow-api/internal/models"
	"github.com/yukikurage/bounty-flow-api/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// TaskSummaryDTO is the public (title, status) projection
type TaskSummaryDTO struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// TaskSummaryResponse wraps a summary; Task is null for unknown IDs
type TaskSummaryResponse struct {
	Task *TaskSummaryDTO `json:"task"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64     `json:"id"`
	Title        string     `json:"title"`
	Amount       int64      `json:"amount"`
	Status       string     `json:"status"`
	CreatorID    uint64     `json:"creator_id"`
	FreelancerID *uint64    `json:"freelancer_id"`
	CompletedAt  *time.Time `json:"completed_at"`
	PaidAt       *time.Time `json:"paid_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Creator      *UserDTO   `json:"creator,omitempty"`
	Freelancer   *UserDTO   `json:"freelancer,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToTaskSummaryResponse converts a projection, nil included
func ToTaskSummaryResponse(summary *services.TaskSummary) TaskSummaryResponse {
	if summary == nil {
		return TaskSummaryResponse{}
	}
	return TaskSummaryResponse{
		Task: &TaskSummaryDTO{
			Title:  summary.Title,
			Status: summary.Status,
		},
	}
}

// ToTaskDTO converts a Task model to TaskDTO. The freelancer is only
// exposed once work has been submitted.
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Amount:      task.Amount,
		Status:      services.StatusLabel(task.Status),
		CreatorID:   task.CreatorID,
		CompletedAt: task.CompletedAt,
		PaidAt:      task.PaidAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	if task.HasFreelancer() {
		freelancerID := task.FreelancerID
		dto.FreelancerID = &freelancerID

		if task.Freelancer.ID != 0 {
			freelancer := ToUserDTO(task.Freelancer)
			dto.Freelancer = &freelancer
		}
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
