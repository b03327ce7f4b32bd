package services

import (
	"errors"
	"testing"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStartConsultation_RequiresVitals(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "VUG/PAT/24/0001", "Ama Mensah")
	f.doctor(t, "D001", "Kwame Asante")
	appointment := f.scheduled(t, "VUG/PAT/24/0001", "D001", "2024-06-25", "10:00")

	for i := 0; i < 2; i++ {
		_, err := f.svc.Appointments.StartConsultation(f.ctx, appointment.ID)
		assert.ErrorIs(t, err, utils.ErrVitalsNotChecked)
		assert.Equal(t, models.StatusScheduled, f.appointment(t, appointment.ID).Status)
	}

	_, err := f.svc.Appointments.UpdateAppointmentStatus(f.ctx, appointment.ID, "IN_PROGRESS")
	require.NoError(t, err)
	_, err = f.svc.Appointments.StartConsultation(f.ctx, appointment.ID)
	assert.ErrorIs(t, err, utils.ErrVitalsNotChecked)
	assert.Equal(t, models.StatusInProgress, f.appointment(t, appointment.ID).Status)
}

func TestStartConsultation(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, "VUG/PAT/24/0001", "Ama Mensah")
	f.doctor(t, "D001", "Kwame Asante")
	require.NoError(t, f.db.Create(&models.Allergy{PatientID: patient.ID, Name: "Penicillin", Severity: "HIGH"}).Error)
	appointment := f.scheduled(t, "VUG/PAT/24/0001", "D001", "2024-06-25", "10:00")
	f.withVitals(t, appointment.ID)
	_, err := f.svc.Appointments.RecordVitals(f.ctx, appointment.ID, VitalsInput{
		Temperature: "99.1", BloodPressure: "130/85", HeartRate: "80", RespiratoryRate: "18",
	})
	require.NoError(t, err)

	view, err := f.svc.Appointments.StartConsultation(f.ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, view.Appointment.Status)
	assert.Equal(t, "Ama Mensah", view.Appointment.Patient.User.Name)
	require.Len(t, view.Appointment.Patient.Allergies, 1)
	assert.Equal(t, "Penicillin", view.Appointment.Patient.Allergies[0].Name)
	assert.Equal(t, "Kwame Asante", view.Appointment.Doctor.User.Name)
	require.NotNil(t, view.LatestVitals)
	assert.Equal(t, "99.1", view.LatestVitals.Temperature)

	view, err = f.svc.Appointments.StartConsultation(f.ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, view.Appointment.Status)

	_, err = f.svc.Appointments.StartConsultation(f.ctx, "missing")
	assert.ErrorIs(t, err, utils.ErrAppointmentNotFound)
}

func TestStartConsultation_RefusedWhenCancelledConcurrently(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "VUG/PAT/24/0001", "Ama Mensah")
	f.doctor(t, "D001", "Kwame Asante")
	appointment := f.scheduled(t, "VUG/PAT/24/0001", "D001", "2024-06-25", "10:00")
	f.withVitals(t, appointment.ID)

	cancelled := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:cancel_first", func(tx *gorm.DB) {
		if cancelled || tx.Statement.Table != "appointments" {
			return
		}
		cancelled = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE appointments SET status = ? WHERE id = ?", models.StatusCancelled, appointment.ID)
	}))

	_, err := f.svc.Appointments.StartConsultation(f.ctx, appointment.ID)
	require.Error(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, utils.CodeInvalidTransition, utils.AsAppError(err).Code)
	assert.Equal(t, models.StatusCancelled, f.appointment(t, appointment.ID).Status)
}

func TestSaveConsultation(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, "VUG/PAT/24/0001", "Ama Mensah")
	doctor := f.doctor(t, "D001", "Kwame Asante")
	appointment := f.scheduled(t, "VUG/PAT/24/0001", "D001", "2024-06-25", "10:00")
	f.withVitals(t, appointment.ID)
	f.withVitals(t, appointment.ID)
	_, err := f.svc.Appointments.StartConsultation(f.ctx, appointment.ID)
	require.NoError(t, err)

	result, err := f.svc.Appointments.SaveConsultation(f.ctx, appointment.ID, ConsultationInput{
		Diagnosis:    "Hypertension",
		Notes:        "Prescribed Lisinopril",
		Prescription: "Lisinopril 10mg",
		FollowUpDate: "2024-07-01",
	})
	require.NoError(t, err)

	record := result.MedicalRecord
	assert.Equal(t, "Hypertension", record.Diagnosis)
	assert.Equal(t, "Prescribed Lisinopril", record.Treatment)
	assert.Equal(t, models.ConditionStable, record.Condition)
	assert.Equal(t, patient.ID, record.PatientID)
	assert.Equal(t, doctor.ID, record.DoctorID)

	var linked int64
	f.db.Model(&models.Vitals{}).Where("medical_record_id = ?", record.ID).Count(&linked)
	assert.EqualValues(t, 2, linked)

	var medications []models.Medication
	require.NoError(t, f.db.Find(&medications).Error)
	require.Len(t, medications, 1)
	assert.Equal(t, "Lisinopril 10mg", medications[0].Name)
	assert.Equal(t, "As prescribed", medications[0].Dosage)
	assert.Equal(t, "Daily", medications[0].Frequency)

	assert.Equal(t, models.StatusCompleted, f.appointment(t, appointment.ID).Status)

	var followUps []models.Appointment
	require.NoError(t, f.db.Where("type = ?", models.TypeFollowUp).Find(&followUps).Error)
	require.Len(t, followUps, 1)
	assert.Equal(t, "10:00", followUps[0].Time)
	assert.Equal(t, "2024-07-01", followUps[0].Date.Local().Format("2006-01-02"))
	assert.Equal(t, models.StatusScheduled, followUps[0].Status)
	assert.False(t, followUps[0].VitalsChecked)
	assert.Equal(t, patient.ID, followUps[0].PatientID)
	assert.Equal(t, doctor.ID, followUps[0].DoctorID)

	var stored models.Patient
	require.NoError(t, f.db.First(&stored, "id = ?", patient.ID).Error)
	assert.NotNil(t, stored.LastVisit)
}

func TestSaveConsultation_WithoutOptionalParts(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "VUG/PAT/24/0001", "Ama Mensah")
	f.doctor(t, "D001", "Kwame Asante")
	appointment := f.scheduled(t, "VUG/PAT/24/0001", "D001", "2024-06-25", "14:30")

	result, err := f.svc.Appointments.SaveConsultation(f.ctx, appointment.ID, ConsultationInput{
		Diagnosis: "Common cold", Notes: "Rest and fluids",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Medication)
	assert.Nil(t, result.FollowUp)

	var appointments, medications int64
	f.db.Model(&models.Appointment{}).Count(&appointments)
	f.db.Model(&models.Medication{}).Count(&medications)
	assert.EqualValues(t, 1, appointments)
	assert.Zero(t, medications)
}

func TestSaveConsultation_Errors(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "VUG/PAT/24/0001", "Ama Mensah")
	f.doctor(t, "D001", "Kwame Asante")
	appointment := f.scheduled(t, "VUG/PAT/24/0001", "D001", "2024-06-25", "10:00")

	_, err := f.svc.Appointments.SaveConsultation(f.ctx, appointment.ID, ConsultationInput{Diagnosis: "  ", FollowUpDate: "next week"})
	require.Error(t, err)
	fields := utils.AsAppError(err).Fields
	assert.Equal(t, "Diagnosis is required", fields["diagnosis"])
	assert.Equal(t, "Consultation notes are required", fields["notes"])
	assert.Contains(t, fields, "followUpDate")

	_, err = f.svc.Appointments.SaveConsultation(f.ctx, "missing", ConsultationInput{Diagnosis: "x", Notes: "y"})
	assert.ErrorIs(t, err, utils.ErrAppointmentNotFound)

	_, err = f.svc.Appointments.SaveConsultation(f.ctx, appointment.ID, ConsultationInput{Diagnosis: "x", Notes: "y"})
	require.NoError(t, err)
	_, err = f.svc.Appointments.SaveConsultation(f.ctx, appointment.ID, ConsultationInput{Diagnosis: "x", Notes: "y"})
	require.Error(t, err)
	assert.Equal(t, utils.CodeInvalidTransition, utils.AsAppError(err).Code)

	var records int64
	f.db.Model(&models.MedicalRecord{}).Count(&records)
	assert.EqualValues(t, 1, records)
}

func TestSaveConsultation_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "VUG/PAT/24/0001", "Ama Mensah")
	f.doctor(t, "D001", "Kwame Asante")
	appointment := f.scheduled(t, "VUG/PAT/24/0001", "D001", "2024-06-25", "10:00")
	f.withVitals(t, appointment.ID)

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_follow_up", func(tx *gorm.DB) {
		if tx.Statement.Table == "appointments" {
			tx.AddError(errors.New("constraint violation"))
		}
	}))

	_, err := f.svc.Appointments.SaveConsultation(f.ctx, appointment.ID, ConsultationInput{
		Diagnosis: "Hypertension", Notes: "Prescribed Lisinopril", Prescription: "Lisinopril 10mg", FollowUpDate: "2024-07-01",
	})
	require.Error(t, err)
	assert.Equal(t, utils.CodeOperationFailed, utils.AsAppError(err).Code)

	var records, medications, linked int64
	f.db.Model(&models.MedicalRecord{}).Count(&records)
	f.db.Model(&models.Medication{}).Count(&medications)
	f.db.Model(&models.Vitals{}).Where("medical_record_id IS NOT NULL").Count(&linked)
	assert.Zero(t, records)
	assert.Zero(t, medications)
	assert.Zero(t, linked)
	assert.Equal(t, models.StatusScheduled, f.appointment(t, appointment.ID).Status)
}
