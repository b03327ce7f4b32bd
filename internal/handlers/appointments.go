package handlers

import (
	"strings"

	"hospital-portal-server/internal/middleware"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/services"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler handles the appointment workflow for all three portals.
type AppointmentHandler struct {
	Appointments *services.AppointmentService
	Dashboard    *services.DashboardService
	Patients     *services.PatientService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *services.Services) *AppointmentHandler {
	return &AppointmentHandler{
		Appointments: svc.Appointments,
		Dashboard:    svc.Dashboard,
		Patients:     svc.Patients,
	}
}

// roleID is the display ID of the logged-in user. Routes using it sit
// behind RequireRole, so a session is always present.
func roleID(c *gin.Context) string {
	session, _ := middleware.CurrentSession(c)
	if session == nil {
		return ""
	}
	return session.RoleSpecificID
}

// PendingRequests lists the nurse's scheduling queue.
func (h *AppointmentHandler) PendingRequests(c *gin.Context) {
	requests, err := h.Appointments.PendingRequests(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment requests fetched successfully", requests)
}

// CreateRequest queues a request on behalf of a walk-in patient.
func (h *AppointmentHandler) CreateRequest(c *gin.Context) {
	var req services.NewAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.createRequest(c, req)
}

// PatientRequestBody is the patient's own request form; the patient is
// taken from the session.
type PatientRequestBody struct {
	PreferredDate string `json:"preferredDate" binding:"required"`
	Type          string `json:"type" binding:"required"`
	Reason        string `json:"reason" binding:"required"`
	Priority      string `json:"priority"`
}

// CreateOwnRequest queues a request for the logged-in patient.
func (h *AppointmentHandler) CreateOwnRequest(c *gin.Context) {
	var req PatientRequestBody
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.createRequest(c, services.NewAppointmentRequest{
		PatientID:     roleID(c),
		PreferredDate: req.PreferredDate,
		Type:          toAppointmentType(req.Type),
		Reason:        req.Reason,
		Priority:      toPriority(req.Priority),
	})
}

func toAppointmentType(s string) models.AppointmentType {
	return models.AppointmentType(strings.ToUpper(strings.TrimSpace(s)))
}

func toPriority(s string) models.Priority {
	return models.Priority(strings.ToUpper(strings.TrimSpace(s)))
}

func (h *AppointmentHandler) createRequest(c *gin.Context, in services.NewAppointmentRequest) {
	request, err := h.Appointments.CreateAppointmentRequest(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment request submitted successfully", request)
}

// Schedule turns a pending request into an appointment.
func (h *AppointmentHandler) Schedule(c *gin.Context) {
	var req services.ScheduleInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appointment, err := h.Appointments.ScheduleAppointment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment scheduled successfully", appointment)
}

// Scheduled lists open appointments for the nurse.
func (h *AppointmentHandler) Scheduled(c *gin.Context) {
	appointments, err := h.Appointments.ScheduledAppointments(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// RecordVitals stores a set of readings for an appointment.
func (h *AppointmentHandler) RecordVitals(c *gin.Context) {
	var req services.VitalsInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	vitals, err := h.Appointments.RecordVitals(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Vitals recorded successfully", vitals)
}

// UpdateStatusRequest represents the request body for a status override.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus overrides an appointment's status.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appointment, err := h.Appointments.UpdateAppointmentStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", appointment)
}

// Start begins the consultation for an appointment.
func (h *AppointmentHandler) Start(c *gin.Context) {
	view, err := h.Appointments.StartConsultation(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Consultation started", view)
}

// Today lists the doctor's appointments for today.
func (h *AppointmentHandler) Today(c *gin.Context) {
	appointments, err := h.Dashboard.TodayAppointments(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// Completed lists the doctor's completed appointments.
func (h *AppointmentHandler) Completed(c *gin.Context) {
	appointments, err := h.Dashboard.CompletedAppointments(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Completed appointments fetched successfully", appointments)
}

// Doctors lists doctors for the scheduling picker.
func (h *AppointmentHandler) Doctors(c *gin.Context) {
	doctors, err := h.Appointments.ListDoctors(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}

// PatientAppointments lists the logged-in patient's appointments.
func (h *AppointmentHandler) PatientAppointments(c *gin.Context) {
	appointments, err := h.Patients.Appointments(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}
