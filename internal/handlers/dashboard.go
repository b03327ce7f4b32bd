package handlers

import (
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/services"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the portal landing pages and the nurse task list.
type DashboardHandler struct {
	Dashboard *services.DashboardService
	Tasks     *services.TaskService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *services.Services) *DashboardHandler {
	return &DashboardHandler{Dashboard: svc.Dashboard, Tasks: svc.Tasks}
}

// DoctorOverview handles GET /doctor.
func (h *DashboardHandler) DoctorOverview(c *gin.Context) {
	overview, err := h.Dashboard.DoctorOverview(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Overview fetched successfully", overview)
}

// NurseOverview handles GET /nurse.
func (h *DashboardHandler) NurseOverview(c *gin.Context) {
	overview, err := h.Dashboard.NurseOverview(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Overview fetched successfully", overview)
}

// ListTasks lists the nurse's tasks.
func (h *DashboardHandler) ListTasks(c *gin.Context) {
	tasks, err := h.Tasks.List(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Tasks fetched successfully", tasks)
}

// CreateTask adds a task for the nurse.
func (h *DashboardHandler) CreateTask(c *gin.Context) {
	var req services.TaskInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	task, err := h.Tasks.Create(c.Request.Context(), roleID(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Task created successfully", task)
}

// TaskStatusRequest represents the request body for a task status update.
type TaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTaskStatus changes the status of one of the nurse's tasks.
func (h *DashboardHandler) UpdateTaskStatus(c *gin.Context) {
	var req TaskStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	task, err := h.Tasks.UpdateStatus(c.Request.Context(), roleID(c), c.Param("id"), models.TaskStatus(req.Status))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Task updated successfully", task)
}

// CompleteTask marks one of the nurse's tasks done.
func (h *DashboardHandler) CompleteTask(c *gin.Context) {
	task, err := h.Tasks.Complete(c.Request.Context(), roleID(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Task completed successfully", task)
}
