package handlers

import (
	"bytes"
	"net/http"

	"hospital-portal-server/internal/services"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// MedicalRecordHandler handles consultations and medical history.
type MedicalRecordHandler struct {
	Appointments *services.AppointmentService
	Patients     *services.PatientService
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(svc *services.Services) *MedicalRecordHandler {
	return &MedicalRecordHandler{Appointments: svc.Appointments, Patients: svc.Patients}
}

// Consultation returns the appointment with patient, doctor and vitals.
func (h *MedicalRecordHandler) Consultation(c *gin.Context) {
	view, err := h.Appointments.Consultation(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Consultation fetched successfully", view)
}

// SaveConsultation records diagnosis, notes, prescription and follow-up.
func (h *MedicalRecordHandler) SaveConsultation(c *gin.Context) {
	var req services.ConsultationInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	result, err := h.Appointments.SaveConsultation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Consultation saved successfully", result)
}

// MedicalHistory lists the logged-in patient's records.
func (h *MedicalRecordHandler) MedicalHistory(c *gin.Context) {
	records, err := h.Patients.MedicalHistory(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical records fetched successfully", records)
}

// DownloadMedicalHistory serves the logged-in patient's records as CSV.
func (h *MedicalRecordHandler) DownloadMedicalHistory(c *gin.Context) {
	records, err := h.Patients.MedicalHistory(c.Request.Context(), roleID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteMedicalHistoryCSV(&buf, records); err != nil {
		utils.RespondError(c, utils.OperationFailed("Failed to export medical history", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="medical-history.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
