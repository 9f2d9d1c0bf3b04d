package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusPaid      TaskStatus = "paid"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusPaid:
		return true
	}
	return false
}

// Next returns the only status s may advance to. Paid is terminal.
func (s TaskStatus) Next() (TaskStatus, bool) {
	switch s {
	case TaskStatusPending:
		return TaskStatusCompleted, true
	case TaskStatusCompleted:
		return TaskStatusPaid, true
	}
	return "", false
}

// CanTransitionTo reports whether moving from s to next is a single forward step.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	n, ok := s.Next()
	return ok && n == next
}

// Task is a bounty. ID comes from the task counter, never from the database.
type Task struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CreatorID    uint64     `gorm:"not null;index:idx_tasks_creator_status,priority:1" json:"creator_id"`
	FreelancerID uint64     `gorm:"not null;index:idx_tasks_freelancer_status,priority:1" json:"freelancer_id"`
	Title        string     `gorm:"type:text;not null" json:"title"`
	Amount       int64      `gorm:"not null" json:"amount"`
	Status       TaskStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_tasks_creator_status,priority:2;index:idx_tasks_freelancer_status,priority:2" json:"status"`
	CompletedAt  *time.Time `json:"completed_at"`
	PaidAt       *time.Time `json:"paid_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	Creator    User `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Freelancer User `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

// HasFreelancer reports whether FreelancerID names a real submitter rather
// than the creator placeholder written at creation.
func (t *Task) HasFreelancer() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusPaid
}
