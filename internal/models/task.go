package models

import "time"

// TaskStatus of a nurse task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// Valid reports enum membership.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task is a to-do item owned by exactly one nurse.
type Task struct {
	BaseModel
	NurseID     string     `gorm:"size:36;index;not null" json:"nurseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Priority    Priority   `gorm:"size:20;default:'NORMAL'" json:"priority"`
	Status      TaskStatus `gorm:"size:20;default:'PENDING';index" json:"status"`
	DueTime     *time.Time `json:"dueTime,omitempty"`
}

// PriorityRank orders priorities for ORDER BY; EMERGENCY ranks highest.
const PriorityRank = "CASE priority WHEN 'EMERGENCY' THEN 3 WHEN 'URGENT' THEN 2 ELSE 1 END"
