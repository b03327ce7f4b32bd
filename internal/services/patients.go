package services

import (
	"context"
	"encoding/csv"
	"io"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PatientService serves patient profiles and medical history.
type PatientService struct {
	base
}

// Profile loads the patient with user and allergies.
func (s *PatientService) Profile(ctx context.Context, patientRef string) (*models.Patient, error) {
	var patient models.Patient
	err := s.dbc(ctx).
		Preload("User").
		Preload("Allergies").
		Where("patient_id = ?", patientRef).
		First(&patient).Error
	if err != nil {
		return nil, s.lookup(err, utils.ErrPatientNotFound, "Failed to fetch patient", logrus.Fields{"patient_id": patientRef})
	}
	return &patient, nil
}

// Appointments lists the patient's appointments, soonest first.
func (s *PatientService) Appointments(ctx context.Context, patientRef string) ([]AppointmentView, error) {
	patient, err := findPatient(s.dbc(ctx), patientRef)
	if err != nil {
		return nil, s.lookup(err, utils.ErrPatientNotFound, "Failed to fetch appointments", logrus.Fields{"patient_id": patientRef})
	}

	var appointments []models.Appointment
	err = withParticipants(s.dbc(ctx)).
		Where("patient_id = ?", patient.ID).
		Order("date ASC, time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch appointments", logrus.Fields{"patient_id": patientRef})
	}
	views := make([]AppointmentView, 0, len(appointments))
	for i := range appointments {
		views = append(views, newAppointmentView(&appointments[i]))
	}
	return views, nil
}

// MedicalHistory lists the patient's medical records, newest first.
func (s *PatientService) MedicalHistory(ctx context.Context, patientRef string) ([]models.MedicalRecord, error) {
	patient, err := findPatient(s.dbc(ctx), patientRef)
	if err != nil {
		return nil, s.lookup(err, utils.ErrPatientNotFound, "Failed to fetch medical history", logrus.Fields{"patient_id": patientRef})
	}
	return s.history(s.dbc(ctx), patient.ID, patientRef)
}

func (s *PatientService) history(tx *gorm.DB, patientID, patientRef string) ([]models.MedicalRecord, error) {
	var records []models.MedicalRecord
	err := tx.
		Preload("Doctor.User").
		Preload("Vitals").
		Where("patient_id = ?", patientID).
		Order("date DESC").
		Find(&records).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch medical history", logrus.Fields{"patient_id": patientRef})
	}
	return records, nil
}

// WriteMedicalHistoryCSV renders records as Date,Diagnosis,Treatment,Doctor.
// Dates are written as the UTC calendar day.
func WriteMedicalHistoryCSV(w io.Writer, records []models.MedicalRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "Diagnosis", "Treatment", "Doctor"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.UTC().Format("2006-01-02"),
			r.Diagnosis,
			r.Treatment,
			"Dr. " + r.Doctor.User.Name,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// DoctorPatientView is a row of the doctor's patient list.
type DoctorPatientView struct {
	RecentPatientView
	Appointments int64 `json:"appointments"`
}

// DoctorPatients lists every patient with an appointment under the doctor,
// by name.
func (s *PatientService) DoctorPatients(ctx context.Context, doctorRef string) ([]DoctorPatientView, error) {
	fields := logrus.Fields{"doctor_id": doctorRef}
	db := s.dbc(ctx)
	doctor, err := findDoctor(db, doctorRef)
	if err != nil {
		return nil, s.lookup(err, utils.ErrDoctorNotFound, "Failed to fetch patients", fields)
	}

	var patients []models.Patient
	err = db.Joins("User").
		Where("patients.id IN (?)", db.Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", doctor.ID)).
		Order("User.name ASC").
		Find(&patients).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch patients", fields)
	}

	type count struct {
		PatientID string
		Total     int64
	}
	var counts []count
	err = db.Model(&models.Appointment{}).
		Select("patient_id, COUNT(*) AS total").
		Where("doctor_id = ?", doctor.ID).
		Group("patient_id").
		Scan(&counts).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch patients", fields)
	}
	totals := make(map[string]int64, len(counts))
	for _, c := range counts {
		totals[c.PatientID] = c.Total
	}

	views := make([]DoctorPatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, DoctorPatientView{
			RecentPatientView: RecentPatientView{
				ID:        p.ID,
				PatientID: p.PatientID,
				Name:      p.User.Name,
				Email:     p.User.Email,
				Gender:    p.Gender,
				BloodType: p.BloodType,
				LastVisit: p.LastVisit,
			},
			Appointments: totals[p.ID],
		})
	}
	return views, nil
}

// PatientDetails is the doctor's view of one patient.
type PatientDetails struct {
	Patient        *models.Patient        `json:"patient"`
	Appointments   []AppointmentView      `json:"appointments"`
	MedicalRecords []models.MedicalRecord `json:"medicalRecords"`
	Medications    []models.Medication    `json:"medications"`
}

// Details returns profile, appointments, records and medications for the
// patient with the given display ID.
func (s *PatientService) Details(ctx context.Context, patientRef string) (*PatientDetails, error) {
	patient, err := s.Profile(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	appointments, err := s.Appointments(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	records, err := s.history(s.dbc(ctx), patient.ID, patientRef)
	if err != nil {
		return nil, err
	}

	var medications []models.Medication
	err = s.dbc(ctx).
		Where("patient_id = ?", patient.ID).
		Order("start_date DESC").
		Find(&medications).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch medications", logrus.Fields{"patient_id": patientRef})
	}

	return &PatientDetails{
		Patient:        patient,
		Appointments:   appointments,
		MedicalRecords: records,
		Medications:    medications,
	}, nil
}
