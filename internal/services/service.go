// Package services holds the portal operations. Handlers translate HTTP into
// calls on these types; every method takes a context and talks to the
// database through gorm.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hospital-portal-server/internal/config"
	"hospital-portal-server/internal/logger"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/monitoring"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Services bundles every service the HTTP layer needs.
type Services struct {
	Auth         *AuthService
	Appointments *AppointmentService
	Dashboard    *DashboardService
	Patients     *PatientService
	Tasks        *TaskService
	Settings     *SettingsService
}

// base is embedded by every service.
type base struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// New wires all services on one database handle.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger, metrics *monitoring.Metrics) *Services {
	b := base{db: db, log: log, metrics: metrics, now: time.Now}
	return &Services{
		Auth:         &AuthService{base: b, cfg: cfg},
		Appointments: &AppointmentService{base: b},
		Dashboard:    &DashboardService{base: b},
		Patients:     &PatientService{base: b},
		Tasks:        &TaskService{base: b},
		Settings:     &SettingsService{base: b},
	}
}

// SetClock replaces the time source of every service. Tests only.
func (s *Services) SetClock(now func() time.Time) {
	s.Auth.now = now
	s.Appointments.now = now
	s.Dashboard.now = now
	s.Patients.now = now
	s.Tasks.now = now
	s.Settings.now = now
}

func (b *base) dbc(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx)
}

// failed logs the internal cause and returns a user-safe error. AppErrors
// pass through untouched.
func (b *base) failed(err error, message string, fields logrus.Fields) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	b.log.WithFields(fields).WithError(err).Error(message)
	return utils.OperationFailed(message, err)
}

// lookup maps gorm.ErrRecordNotFound onto notFound.
func (b *base) lookup(err error, notFound *utils.AppError, message string, fields logrus.Fields) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return b.failed(err, message, fields)
}

func findPatient(tx *gorm.DB, patientRef string) (*models.Patient, error) {
	var patient models.Patient
	if err := tx.Where("patient_id = ?", patientRef).First(&patient).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func findDoctor(tx *gorm.DB, doctorRef string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := tx.Where("doctor_id = ?", doctorRef).First(&doctor).Error; err != nil {
		return nil, err
	}
	return &doctor, nil
}

func findNurse(tx *gorm.DB, nurseRef string) (*models.Nurse, error) {
	var nurse models.Nurse
	if err := tx.Where("nurse_id = ?", nurseRef).First(&nurse).Error; err != nil {
		return nil, err
	}
	return &nurse, nil
}

// ParseDate accepts "2006-01-02" (local midnight) or RFC 3339.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// dayBounds returns [local midnight, next local midnight) around t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(time.Local)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
