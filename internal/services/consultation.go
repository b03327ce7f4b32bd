package services

import (
	"context"
	"strings"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConsultationView is what the doctor sees while consulting.
type ConsultationView struct {
	Appointment  *models.Appointment `json:"appointment"`
	LatestVitals *models.Vitals      `json:"latestVitals"`
}

// Consultation loads an appointment with patient, allergies, doctor and
// vitals.
func (s *AppointmentService) Consultation(ctx context.Context, appointmentID string) (*ConsultationView, error) {
	var appointment models.Appointment
	err := s.dbc(ctx).
		Preload("Patient.User").
		Preload("Patient.Allergies").
		Preload("Doctor.User").
		Preload("Vitals", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&appointment, "id = ?", appointmentID).Error
	if err != nil {
		return nil, s.lookup(err, utils.ErrAppointmentNotFound, "Failed to fetch consultation", logrus.Fields{"appointment_id": appointmentID})
	}
	return &ConsultationView{Appointment: &appointment, LatestVitals: appointment.LatestVitals()}, nil
}

// StartConsultation moves a SCHEDULED appointment with checked vitals to
// IN_PROGRESS. Starting one that is already IN_PROGRESS is a no-op; one
// cancelled or completed in the meantime is refused.
func (s *AppointmentService) StartConsultation(ctx context.Context, appointmentID string) (*ConsultationView, error) {
	fields := logrus.Fields{"appointment_id": appointmentID}

	var appointment models.Appointment
	if err := s.dbc(ctx).First(&appointment, "id = ?", appointmentID).Error; err != nil {
		return nil, s.lookup(err, utils.ErrAppointmentNotFound, "Failed to start consultation", fields)
	}
	if !appointment.VitalsChecked {
		return nil, utils.ErrVitalsNotChecked
	}
	if appointment.Status.Terminal() {
		return nil, utils.InvalidTransition("Appointment is already " + strings.ToLower(string(appointment.Status)))
	}

	if appointment.Status == models.StatusScheduled {
		res := s.dbc(ctx).Model(&models.Appointment{}).
			Where("id = ? AND status = ? AND vitals_checked = ?", appointment.ID, models.StatusScheduled, true).
			Update("status", models.StatusInProgress)
		if res.Error != nil {
			return nil, s.failed(res.Error, "Failed to start consultation", fields)
		}
		if res.RowsAffected > 0 {
			s.metrics.RecordTransition("appointment", string(models.StatusInProgress))
		} else {
			// Lost to a concurrent status change; only another start is fine.
			var current models.Appointment
			if err := s.dbc(ctx).Select("status").First(&current, "id = ?", appointment.ID).Error; err != nil {
				return nil, s.lookup(err, utils.ErrAppointmentNotFound, "Failed to start consultation", fields)
			}
			if current.Status != models.StatusInProgress {
				return nil, utils.InvalidTransition("Appointment is already " + strings.ToLower(string(current.Status)))
			}
		}
	}

	return s.Consultation(ctx, appointmentID)
}

// ConsultationInput is the doctor's consultation form.
type ConsultationInput struct {
	Diagnosis    string `json:"diagnosis"`
	Notes        string `json:"notes"`
	Prescription string `json:"prescription"`
	FollowUpDate string `json:"followUpDate"`
}

// ConsultationResult lists everything SaveConsultation created.
type ConsultationResult struct {
	MedicalRecord *models.MedicalRecord `json:"medicalRecord"`
	Medication    *models.Medication    `json:"medication,omitempty"`
	FollowUp      *models.Appointment   `json:"followUp,omitempty"`
}

// SaveConsultation records the outcome of a consultation and completes the
// appointment. The medical record, vitals links, prescription, completion
// and follow-up appointment commit as one transaction.
func (s *AppointmentService) SaveConsultation(ctx context.Context, appointmentID string, in ConsultationInput) (*ConsultationResult, error) {
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Prescription = strings.TrimSpace(in.Prescription)
	in.FollowUpDate = strings.TrimSpace(in.FollowUpDate)

	invalid := map[string]string{}
	if in.Diagnosis == "" {
		invalid["diagnosis"] = "Diagnosis is required"
	}
	if in.Notes == "" {
		invalid["notes"] = "Consultation notes are required"
	}
	var followUp *models.Appointment
	if in.FollowUpDate != "" {
		date, err := ParseDate(in.FollowUpDate)
		if err != nil {
			invalid["followUpDate"] = "Follow-up date must be a valid date (YYYY-MM-DD)"
		} else {
			followUp = &models.Appointment{Date: date}
		}
	}
	if len(invalid) > 0 {
		return nil, utils.ValidationError(invalid)
	}

	fields := logrus.Fields{"appointment_id": appointmentID}
	now := s.now()
	result := &ConsultationResult{}
	err := s.dbc(ctx).Transaction(func(tx *gorm.DB) error {
		var appointment models.Appointment
		if err := tx.First(&appointment, "id = ?", appointmentID).Error; err != nil {
			return s.lookup(err, utils.ErrAppointmentNotFound, "Failed to save consultation", fields)
		}
		if !appointment.Status.CanTransitionTo(models.StatusCompleted) {
			return utils.InvalidTransition("Appointment is already " + strings.ToLower(string(appointment.Status)))
		}

		record := models.MedicalRecord{
			PatientID: appointment.PatientID,
			DoctorID:  appointment.DoctorID,
			Diagnosis: in.Diagnosis,
			Treatment: in.Notes,
			Condition: models.ConditionStable,
			Date:      now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Vitals{}).
			Where("appointment_id = ?", appointment.ID).
			Update("medical_record_id", record.ID).Error; err != nil {
			return err
		}
		result.MedicalRecord = &record

		if in.Prescription != "" {
			medication := models.Medication{
				PatientID: appointment.PatientID,
				Name:      in.Prescription,
				Dosage:    "As prescribed",
				Frequency: "Daily",
				StartDate: now,
			}
			if err := tx.Create(&medication).Error; err != nil {
				return err
			}
			result.Medication = &medication
		}

		res := tx.Model(&models.Appointment{}).
			Where("id = ? AND status IN ?", appointment.ID, []models.AppointmentStatus{models.StatusScheduled, models.StatusInProgress}).
			Update("status", models.StatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.InvalidTransition("Appointment is no longer open")
		}

		if err := tx.Model(&models.Patient{}).
			Where("id = ?", appointment.PatientID).
			Update("last_visit", now).Error; err != nil {
			return err
		}

		if followUp != nil {
			followUp.PatientID = appointment.PatientID
			followUp.DoctorID = appointment.DoctorID
			followUp.Time = appointment.Time
			followUp.Type = models.TypeFollowUp
			followUp.Status = models.StatusScheduled
			followUp.Reason = "Follow-up: " + in.Diagnosis
			if err := tx.Create(followUp).Error; err != nil {
				return err
			}
			result.FollowUp = followUp
		}
		return nil
	})
	if err != nil {
		return nil, s.failed(err, "Failed to save consultation", fields)
	}

	s.metrics.RecordTransition("appointment", string(models.StatusCompleted))
	s.log.WithFields(fields).WithField("medical_record_id", result.MedicalRecord.ID).Info("Consultation saved")
	return result, nil
}
