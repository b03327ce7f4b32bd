package handlers

import (
	"hospital-portal-server/internal/middleware"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/services"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler handles profiles, patient lists and nurse settings.
type UserHandler struct {
	Auth     *services.AuthService
	Patients *services.PatientService
	Settings *services.SettingsService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *services.Services) *UserHandler {
	return &UserHandler{Auth: svc.Auth, Patients: svc.Patients, Settings: svc.Settings}
}

// IntakeRequest is the nurse's patient intake form.
type IntakeRequest struct {
	Name      string `json:"name" binding:"required,min=2"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	PatientID string `json:"patientId" binding:"required"`
	Phone     string `json:"phone"`
	Gender    string `json:"gender"`
	BloodType string `json:"bloodType"`
}

// IntakePatient registers a patient at the front desk.
func (h *UserHandler) IntakePatient(c *gin.Context) {
	var req IntakeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, err := h.Auth.Register(c.Request.Context(), services.NewUser{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      models.RolePatient,
		RoleID:    req.PatientID,
		Phone:     req.Phone,
		Gender:    req.Gender,
		BloodType: req.BloodType,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Patient registered successfully", user)
}

// PatientProfile returns the logged-in patient's profile.
func (h *UserHandler) PatientProfile(c *gin.Context) {
	patient, err := h.Patients.Profile(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Profile fetched successfully", patient)
}

// DoctorPatients lists the patients seen by the logged-in doctor.
func (h *UserHandler) DoctorPatients(c *gin.Context) {
	patients, err := h.Patients.DoctorPatients(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Patients fetched successfully", patients)
}

// PatientDetails returns one patient's chart. Patient display IDs contain
// slashes, so the route uses a catch-all parameter.
func (h *UserHandler) PatientDetails(c *gin.Context) {
	details, err := h.Patients.Details(c.Request.Context(), trimLeadingSlash(c.Param("patientId")))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Patient fetched successfully", details)
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

// GetSettings returns the logged-in nurse's settings.
func (h *UserHandler) GetSettings(c *gin.Context) {
	session, _ := middleware.CurrentSession(c)
	settings, err := h.Settings.Get(c.Request.Context(), session.UserID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Settings fetched successfully", settings)
}

// UpdateSettings saves the logged-in nurse's settings.
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	var req services.NurseSettings
	if !utils.BindAndValidate(c, &req) {
		return
	}
	session, _ := middleware.CurrentSession(c)
	settings, err := h.Settings.Update(c.Request.Context(), session.UserID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Settings updated successfully", settings)
}
