package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AppointmentService runs the request -> appointment -> consultation workflow.
type AppointmentService struct {
	base
}

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// NewAppointmentRequest is the input for CreateAppointmentRequest.
type NewAppointmentRequest struct {
	PatientID     string                 `json:"patientId" binding:"required"`
	PreferredDate string                 `json:"preferredDate" binding:"required"`
	Type          models.AppointmentType `json:"type" binding:"required,oneof=CHECK_UP FOLLOW_UP CONSULTATION EMERGENCY"`
	Reason        string                 `json:"reason" binding:"required"`
	Priority      models.Priority        `json:"priority" binding:"omitempty,oneof=NORMAL URGENT EMERGENCY"`
}

// CreateAppointmentRequest queues a PENDING request for the patient with the
// given display ID.
func (s *AppointmentService) CreateAppointmentRequest(ctx context.Context, in NewAppointmentRequest) (*models.AppointmentRequest, error) {
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	if err := utils.ValidateInput(in); err != nil {
		return nil, err
	}
	preferred, err := ParseDate(in.PreferredDate)
	if err != nil {
		return nil, utils.ValidationError(map[string]string{"preferredDate": "Invalid preferred date"})
	}

	patient, err := findPatient(s.dbc(ctx), strings.TrimSpace(in.PatientID))
	if err != nil {
		return nil, s.lookup(err, utils.ErrPatientNotFound, "Failed to create appointment request", logrus.Fields{"patient_id": in.PatientID})
	}

	request := models.AppointmentRequest{
		PatientID:     patient.ID,
		PreferredDate: preferred,
		Type:          in.Type,
		Reason:        in.Reason,
		Priority:      in.Priority,
		Status:        models.RequestPending,
	}
	if err := s.dbc(ctx).Create(&request).Error; err != nil {
		return nil, s.failed(err, "Failed to create appointment request", logrus.Fields{"patient_id": in.PatientID})
	}

	s.metrics.RecordTransition("appointment_request", string(models.RequestPending))
	return &request, nil
}

// PendingRequestView is one row of the nurse's pending queue.
type PendingRequestView struct {
	ID            string                 `json:"id"`
	PatientName   string                 `json:"patientName"`
	PatientID     string                 `json:"patientId"`
	PreferredDate time.Time              `json:"preferredDate"`
	Type          models.AppointmentType `json:"appointmentType"`
	Reason        string                 `json:"reason"`
	Priority      models.Priority        `json:"priority"`
	Status        models.RequestStatus   `json:"status"`
}

// PendingRequests lists PENDING requests by preferred date, earliest first.
func (s *AppointmentService) PendingRequests(ctx context.Context) ([]PendingRequestView, error) {
	var requests []models.AppointmentRequest
	err := s.dbc(ctx).
		Preload("Patient.User").
		Where("status = ?", models.RequestPending).
		Order("preferred_date ASC").
		Find(&requests).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch appointment requests", nil)
	}

	views := make([]PendingRequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, PendingRequestView{
			ID:            r.ID,
			PatientName:   r.Patient.User.Name,
			PatientID:     r.Patient.PatientID,
			PreferredDate: r.PreferredDate,
			Type:          r.Type,
			Reason:        r.Reason,
			Priority:      r.Priority,
			Status:        r.Status,
		})
	}
	return views, nil
}

// ScheduleInput is the input for ScheduleAppointment.
type ScheduleInput struct {
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	DoctorID string `json:"doctorId" binding:"required"`
}

// ScheduleAppointment turns a PENDING request into a SCHEDULED appointment.
// Both writes commit together; a request that is no longer PENDING when the
// update runs yields ErrAlreadyScheduled.
func (s *AppointmentService) ScheduleAppointment(ctx context.Context, requestID string, in ScheduleInput) (*models.Appointment, error) {
	if err := utils.ValidateInput(in); err != nil {
		return nil, err
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, utils.ValidationError(map[string]string{"date": "Invalid appointment date"})
	}
	if !timeOfDay.MatchString(strings.TrimSpace(in.Time)) {
		return nil, utils.ValidationError(map[string]string{"time": "Time must be in HH:MM format"})
	}

	fields := logrus.Fields{"request_id": requestID, "doctor_id": in.DoctorID}
	var appointment models.Appointment
	err = s.dbc(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.AppointmentRequest
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			return s.lookup(err, utils.ErrRequestNotFound, "Failed to schedule appointment", fields)
		}
		if request.Status != models.RequestPending {
			if request.Status == models.RequestScheduled {
				return utils.ErrAlreadyScheduled
			}
			return utils.InvalidTransition("Appointment request is " + strings.ToLower(string(request.Status)))
		}

		doctor, err := findDoctor(tx, strings.TrimSpace(in.DoctorID))
		if err != nil {
			return s.lookup(err, utils.ErrDoctorNotFound, "Failed to schedule appointment", fields)
		}

		res := tx.Model(&models.AppointmentRequest{}).
			Where("id = ? AND status = ?", request.ID, models.RequestPending).
			Update("status", models.RequestScheduled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrAlreadyScheduled
		}

		appointment = models.Appointment{
			PatientID:     request.PatientID,
			DoctorID:      doctor.ID,
			Date:          date,
			Time:          strings.TrimSpace(in.Time),
			Type:          request.Type,
			Status:        models.StatusScheduled,
			Reason:        request.Reason,
			VitalsChecked: false,
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		return nil, s.failed(err, "Failed to schedule appointment", fields)
	}

	s.metrics.RecordTransition("appointment_request", string(models.RequestScheduled))
	s.metrics.RecordTransition("appointment", string(models.StatusScheduled))
	s.log.WithFields(fields).WithField("appointment_id", appointment.ID).Info("Appointment scheduled")
	return &appointment, nil
}

// AppointmentView is an appointment as listed on the dashboards.
type AppointmentView struct {
	ID            string                   `json:"id"`
	PatientName   string                   `json:"patientName"`
	PatientID     string                   `json:"patientId"`
	DoctorName    string                   `json:"doctorName"`
	DoctorID      string                   `json:"doctorId"`
	Date          time.Time                `json:"date"`
	Time          string                   `json:"time"`
	Type          models.AppointmentType   `json:"type"`
	Status        models.AppointmentStatus `json:"status"`
	Reason        string                   `json:"reason"`
	VitalsChecked bool                     `json:"vitalsChecked"`
	Vitals        *models.Vitals           `json:"vitals,omitempty"`
}

func newAppointmentView(a *models.Appointment) AppointmentView {
	return AppointmentView{
		ID:            a.ID,
		PatientName:   a.Patient.User.Name,
		PatientID:     a.Patient.PatientID,
		DoctorName:    a.Doctor.User.Name,
		DoctorID:      a.Doctor.DoctorID,
		Date:          a.Date,
		Time:          a.Time,
		Type:          a.Type,
		Status:        a.Status,
		Reason:        a.Reason,
		VitalsChecked: a.VitalsChecked,
		Vitals:        a.LatestVitals(),
	}
}

func withParticipants(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Patient.User").Preload("Doctor.User").Preload("Vitals")
}

// ScheduledAppointments lists open appointments for the nurse, soonest first.
func (s *AppointmentService) ScheduledAppointments(ctx context.Context) ([]AppointmentView, error) {
	var appointments []models.Appointment
	err := withParticipants(s.dbc(ctx)).
		Where("status IN ?", []models.AppointmentStatus{models.StatusScheduled, models.StatusInProgress}).
		Order("date ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch appointments", nil)
	}
	views := make([]AppointmentView, 0, len(appointments))
	for i := range appointments {
		views = append(views, newAppointmentView(&appointments[i]))
	}
	return views, nil
}

// VitalsInput holds one set of readings.
type VitalsInput struct {
	Temperature     string  `json:"temperature" binding:"required"`
	BloodPressure   string  `json:"bloodPressure" binding:"required"`
	HeartRate       string  `json:"heartRate" binding:"required"`
	RespiratoryRate string  `json:"respiratoryRate" binding:"required"`
	Weight          *string `json:"weight"`
	Height          *string `json:"height"`
}

// RecordVitals appends a reading and marks the appointment's vitals as
// checked. The appointment status is left alone.
func (s *AppointmentService) RecordVitals(ctx context.Context, appointmentID string, in VitalsInput) (*models.Vitals, error) {
	if err := utils.ValidateInput(in); err != nil {
		return nil, err
	}

	fields := logrus.Fields{"appointment_id": appointmentID}
	var vitals models.Vitals
	err := s.dbc(ctx).Transaction(func(tx *gorm.DB) error {
		var appointment models.Appointment
		if err := tx.First(&appointment, "id = ?", appointmentID).Error; err != nil {
			return s.lookup(err, utils.ErrAppointmentNotFound, "Failed to record vitals", fields)
		}
		if appointment.Status.Terminal() {
			return utils.InvalidTransition("Cannot record vitals for a " + strings.ToLower(string(appointment.Status)) + " appointment")
		}

		vitals = models.Vitals{
			AppointmentID:   appointment.ID,
			Temperature:     in.Temperature,
			BloodPressure:   in.BloodPressure,
			HeartRate:       in.HeartRate,
			RespiratoryRate: in.RespiratoryRate,
			Weight:          blankToNil(in.Weight),
			Height:          blankToNil(in.Height),
		}
		if err := tx.Create(&vitals).Error; err != nil {
			return err
		}
		return tx.Model(&models.Appointment{}).Where("id = ?", appointment.ID).Update("vitals_checked", true).Error
	})
	if err != nil {
		return nil, s.failed(err, "Failed to record vitals", fields)
	}

	s.metrics.RecordTransition("appointment", "vitals_recorded")
	return &vitals, nil
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}

// UpdateAppointmentStatus overrides the status. Only enum membership is
// checked.
func (s *AppointmentService) UpdateAppointmentStatus(ctx context.Context, appointmentID, status string) (*models.Appointment, error) {
	next, ok := models.ParseAppointmentStatus(status)
	if !ok {
		return nil, utils.ValidationError(map[string]string{
			"status": "status must be one of: SCHEDULED IN_PROGRESS COMPLETED CANCELLED",
		})
	}

	fields := logrus.Fields{"appointment_id": appointmentID, "status": next}
	var appointment models.Appointment
	if err := s.dbc(ctx).First(&appointment, "id = ?", appointmentID).Error; err != nil {
		return nil, s.lookup(err, utils.ErrAppointmentNotFound, "Failed to update appointment status", fields)
	}
	if err := s.dbc(ctx).Model(&appointment).Update("status", next).Error; err != nil {
		return nil, s.failed(err, "Failed to update appointment status", fields)
	}
	appointment.Status = next

	s.metrics.RecordTransition("appointment", string(next))
	return &appointment, nil
}

// DoctorOption is an entry of the doctor picker.
type DoctorOption struct {
	ID             string `json:"id"`
	DoctorID       string `json:"doctorId"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
}

// ListDoctors returns every doctor ordered by name.
func (s *AppointmentService) ListDoctors(ctx context.Context) ([]DoctorOption, error) {
	var doctors []models.Doctor
	err := s.dbc(ctx).
		Joins("User").
		Order("User.name ASC").
		Find(&doctors).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch doctors", nil)
	}
	options := make([]DoctorOption, 0, len(doctors))
	for _, d := range doctors {
		options = append(options, DoctorOption{
			ID:             d.ID,
			DoctorID:       d.DoctorID,
			Name:           d.User.Name,
			Specialization: d.Specialization,
		})
	}
	return options, nil
}
