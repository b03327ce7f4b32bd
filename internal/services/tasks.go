package services

import (
	"context"
	"time"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
)

// TaskService manages the nurse's to-do list.
type TaskService struct {
	base
}

func (s *TaskService) nurse(ctx context.Context, nurseRef string) (*models.Nurse, error) {
	nurse, err := findNurse(s.dbc(ctx), nurseRef)
	if err != nil {
		return nil, s.lookup(err, utils.ErrNurseNotFound, "Failed to fetch nurse", logrus.Fields{"nurse_id": nurseRef})
	}
	return nurse, nil
}

// List returns the nurse's tasks, most urgent first and newest first within
// a priority.
func (s *TaskService) List(ctx context.Context, nurseRef string) ([]models.Task, error) {
	nurse, err := s.nurse(ctx, nurseRef)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	err = s.dbc(ctx).
		Where("nurse_id = ?", nurse.ID).
		Order(models.PriorityRank + " DESC").
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch tasks", logrus.Fields{"nurse_id": nurseRef})
	}
	return tasks, nil
}

// TaskInput is the new-task form.
type TaskInput struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority" binding:"omitempty,oneof=NORMAL URGENT EMERGENCY"`
	DueTime     *time.Time      `json:"dueTime"`
}

// Create adds a PENDING task for the nurse.
func (s *TaskService) Create(ctx context.Context, nurseRef string, in TaskInput) (*models.Task, error) {
	if err := utils.ValidateInput(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	nurse, err := s.nurse(ctx, nurseRef)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		NurseID:     nurse.ID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      models.TaskPending,
		DueTime:     in.DueTime,
	}
	if err := s.dbc(ctx).Create(&task).Error; err != nil {
		return nil, s.failed(err, "Failed to create task", logrus.Fields{"nurse_id": nurseRef})
	}
	return &task, nil
}

// UpdateStatus sets the status of one of the nurse's own tasks. Tasks of
// other nurses are reported as not found.
func (s *TaskService) UpdateStatus(ctx context.Context, nurseRef, taskID string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, utils.ValidationError(map[string]string{
			"status": "status must be one of: PENDING IN_PROGRESS COMPLETED",
		})
	}
	nurse, err := s.nurse(ctx, nurseRef)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"nurse_id": nurseRef, "task_id": taskID}
	var task models.Task
	if err := s.dbc(ctx).Where("id = ? AND nurse_id = ?", taskID, nurse.ID).First(&task).Error; err != nil {
		return nil, s.lookup(err, utils.ErrTaskNotFound, "Failed to update task", fields)
	}
	if err := s.dbc(ctx).Model(&task).Update("status", status).Error; err != nil {
		return nil, s.failed(err, "Failed to update task", fields)
	}
	task.Status = status
	s.metrics.RecordTransition("task", string(status))
	return &task, nil
}

// Complete marks one of the nurse's tasks COMPLETED.
func (s *TaskService) Complete(ctx context.Context, nurseRef, taskID string) (*models.Task, error) {
	return s.UpdateStatus(ctx, nurseRef, taskID, models.TaskCompleted)
}
