package services

import (
	"context"
	"time"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
)

// DashboardService builds the doctor and nurse landing pages.
type DashboardService struct {
	base
}

const recentPatientLimit = 5

const upcomingTaskLimit = 4

var openStatuses = []models.AppointmentStatus{models.StatusScheduled, models.StatusInProgress}

// DoctorStats are the counters on the doctor overview.
type DoctorStats struct {
	TotalAppointments int64 `json:"totalAppointments"`
	TotalPatients     int64 `json:"totalPatients"`
	TodayAppointments int   `json:"todayAppointments"`
}

// RecentPatientView is one entry of the recent patients panel.
type RecentPatientView struct {
	ID        string     `json:"id"`
	PatientID string     `json:"patientId"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Gender    string     `json:"gender,omitempty"`
	BloodType string     `json:"bloodType,omitempty"`
	LastVisit *time.Time `json:"lastVisit,omitempty"`
}

// DoctorOverview is the doctor landing page.
type DoctorOverview struct {
	Stats          DoctorStats         `json:"stats"`
	Appointments   []AppointmentView   `json:"appointments"`
	RecentPatients []RecentPatientView `json:"recentPatients"`
}

func (s *DashboardService) doctor(ctx context.Context, doctorRef string) (*models.Doctor, error) {
	doctor, err := findDoctor(s.dbc(ctx), doctorRef)
	if err != nil {
		return nil, s.lookup(err, utils.ErrDoctorNotFound, "Failed to fetch doctor", logrus.Fields{"doctor_id": doctorRef})
	}
	return doctor, nil
}

// DoctorOverview returns stats, today's open appointments and recent
// patients for the doctor with the given display ID.
func (s *DashboardService) DoctorOverview(ctx context.Context, doctorRef string) (*DoctorOverview, error) {
	doctor, err := s.doctor(ctx, doctorRef)
	if err != nil {
		return nil, err
	}

	today, err := s.todayAppointments(ctx, doctor.ID, openStatuses)
	if err != nil {
		return nil, err
	}
	recent, err := s.recentPatients(ctx, doctor.ID)
	if err != nil {
		return nil, err
	}

	overview := &DoctorOverview{Appointments: today, RecentPatients: recent}
	overview.Stats.TodayAppointments = len(today)
	if err := s.dbc(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ?", doctor.ID).
		Count(&overview.Stats.TotalAppointments).Error; err != nil {
		return nil, s.failed(err, "Failed to fetch doctor stats", logrus.Fields{"doctor_id": doctorRef})
	}
	if err := s.dbc(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ?", doctor.ID).
		Distinct("patient_id").
		Count(&overview.Stats.TotalPatients).Error; err != nil {
		return nil, s.failed(err, "Failed to fetch doctor stats", logrus.Fields{"doctor_id": doctorRef})
	}
	return overview, nil
}

// TodayAppointments lists every appointment of the doctor dated today, in
// any status.
func (s *DashboardService) TodayAppointments(ctx context.Context, doctorRef string) ([]AppointmentView, error) {
	doctor, err := s.doctor(ctx, doctorRef)
	if err != nil {
		return nil, err
	}
	return s.todayAppointments(ctx, doctor.ID, nil)
}

func (s *DashboardService) todayAppointments(ctx context.Context, doctorID string, statuses []models.AppointmentStatus) ([]AppointmentView, error) {
	start, end := dayBounds(s.now())
	query := withParticipants(s.dbc(ctx)).
		Where("doctor_id = ? AND date >= ? AND date < ?", doctorID, start, end)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var appointments []models.Appointment
	if err := query.Order("date ASC, time ASC").Find(&appointments).Error; err != nil {
		return nil, s.failed(err, "Failed to fetch appointments", logrus.Fields{"doctor_id": doctorID})
	}
	views := make([]AppointmentView, 0, len(appointments))
	for i := range appointments {
		views = append(views, newAppointmentView(&appointments[i]))
	}
	return views, nil
}

// RecentPatients returns the newest patients who have any appointment with
// the doctor.
func (s *DashboardService) RecentPatients(ctx context.Context, doctorRef string) ([]RecentPatientView, error) {
	doctor, err := s.doctor(ctx, doctorRef)
	if err != nil {
		return nil, err
	}
	return s.recentPatients(ctx, doctor.ID)
}

func (s *DashboardService) recentPatients(ctx context.Context, doctorID string) ([]RecentPatientView, error) {
	db := s.dbc(ctx)
	var patients []models.Patient
	err := db.Preload("User").
		Where("id IN (?)", db.Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", doctorID)).
		Order("created_at DESC").
		Limit(recentPatientLimit).
		Find(&patients).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch recent patients", logrus.Fields{"doctor_id": doctorID})
	}

	views := make([]RecentPatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, RecentPatientView{
			ID:        p.ID,
			PatientID: p.PatientID,
			Name:      p.User.Name,
			Email:     p.User.Email,
			Gender:    p.Gender,
			BloodType: p.BloodType,
			LastVisit: p.LastVisit,
		})
	}
	return views, nil
}

// CompletedAppointmentView adds the latest diagnosis to a completed
// appointment.
type CompletedAppointmentView struct {
	AppointmentView
	Diagnosis string `json:"diagnosis"`
}

// CompletedAppointments lists the doctor's completed appointments, newest
// first.
func (s *DashboardService) CompletedAppointments(ctx context.Context, doctorRef string) ([]CompletedAppointmentView, error) {
	doctor, err := s.doctor(ctx, doctorRef)
	if err != nil {
		return nil, err
	}

	var appointments []models.Appointment
	err = withParticipants(s.dbc(ctx)).
		Where("doctor_id = ? AND status = ?", doctor.ID, models.StatusCompleted).
		Order("date DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch completed appointments", logrus.Fields{"doctor_id": doctorRef})
	}

	views := make([]CompletedAppointmentView, 0, len(appointments))
	for i := range appointments {
		a := &appointments[i]
		view := CompletedAppointmentView{AppointmentView: newAppointmentView(a), Diagnosis: "No diagnosis"}

		var record models.MedicalRecord
		err := s.dbc(ctx).
			Where("patient_id = ? AND doctor_id = ?", a.PatientID, a.DoctorID).
			Order("date DESC").
			Limit(1).
			Find(&record).Error
		if err != nil {
			return nil, s.failed(err, "Failed to fetch completed appointments", logrus.Fields{"appointment_id": a.ID})
		}
		if record.ID != "" {
			view.Diagnosis = record.Diagnosis
		}
		views = append(views, view)
	}
	return views, nil
}

// NurseStats are the counters on the nurse overview.
type NurseStats struct {
	TotalPatients      int64 `json:"totalPatients"`
	ActiveAppointments int64 `json:"activeAppointments"`
	PendingTasks       int64 `json:"pendingTasks"`
	CriticalPatients   int   `json:"criticalPatients"`
}

// UpcomingTaskView is a task on the nurse overview.
type UpcomingTaskView struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Priority models.Priority   `json:"priority"`
	Status   models.TaskStatus `json:"status"`
	Time     string            `json:"time"`
}

// CriticalPatientView is a patient in a critical ICU condition.
type CriticalPatientView struct {
	PatientID string                 `json:"patientId"`
	Name      string                 `json:"name"`
	Condition models.ConditionStatus `json:"condition"`
	Room      string                 `json:"room"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// NurseOverview is the nurse landing page.
type NurseOverview struct {
	Stats            NurseStats            `json:"stats"`
	UpcomingTasks    []UpcomingTaskView    `json:"upcomingTasks"`
	CriticalPatients []CriticalPatientView `json:"criticalPatients"`
}

// NurseOverview returns stats, the next tasks and critical patients for the
// nurse with the given display ID.
func (s *DashboardService) NurseOverview(ctx context.Context, nurseRef string) (*NurseOverview, error) {
	fields := logrus.Fields{"nurse_id": nurseRef}
	nurse, err := findNurse(s.dbc(ctx), nurseRef)
	if err != nil {
		return nil, s.lookup(err, utils.ErrNurseNotFound, "Failed to fetch nurse", fields)
	}

	critical, err := s.criticalPatients(ctx)
	if err != nil {
		return nil, err
	}
	overview := &NurseOverview{CriticalPatients: critical}
	overview.Stats.CriticalPatients = len(critical)

	db := s.dbc(ctx)
	if err := db.Model(&models.Patient{}).Count(&overview.Stats.TotalPatients).Error; err != nil {
		return nil, s.failed(err, "Failed to fetch nurse stats", fields)
	}
	if err := db.Model(&models.Appointment{}).
		Where("status IN ?", openStatuses).
		Count(&overview.Stats.ActiveAppointments).Error; err != nil {
		return nil, s.failed(err, "Failed to fetch nurse stats", fields)
	}
	if err := db.Model(&models.Task{}).
		Where("nurse_id = ? AND status <> ?", nurse.ID, models.TaskCompleted).
		Count(&overview.Stats.PendingTasks).Error; err != nil {
		return nil, s.failed(err, "Failed to fetch nurse stats", fields)
	}

	var tasks []models.Task
	if err := db.Where("nurse_id = ? AND status <> ? AND due_time >= ?", nurse.ID, models.TaskCompleted, s.now()).
		Order("due_time ASC").
		Limit(upcomingTaskLimit).
		Find(&tasks).Error; err != nil {
		return nil, s.failed(err, "Failed to fetch upcoming tasks", fields)
	}
	overview.UpcomingTasks = make([]UpcomingTaskView, 0, len(tasks))
	for _, t := range tasks {
		view := UpcomingTaskView{ID: t.ID, Title: t.Title, Priority: t.Priority, Status: t.Status}
		if t.DueTime != nil {
			view.Time = t.DueTime.In(time.Local).Format("03:04 PM")
		}
		overview.UpcomingTasks = append(overview.UpcomingTasks, view)
	}
	return overview, nil
}

// criticalPatients returns one entry per patient whose latest ICU appointment
// is CRITICAL or EMERGENCY, most recently updated first.
func (s *DashboardService) criticalPatients(ctx context.Context) ([]CriticalPatientView, error) {
	var appointments []models.Appointment
	err := s.dbc(ctx).
		Preload("Patient.User").
		Where("`condition` IN ? AND room LIKE ?", []models.ConditionStatus{models.ConditionCritical, models.ConditionEmergency}, "ICU%").
		Order("updated_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, s.failed(err, "Failed to fetch critical patients", nil)
	}

	seen := make(map[string]bool, len(appointments))
	views := make([]CriticalPatientView, 0, len(appointments))
	for _, a := range appointments {
		if seen[a.PatientID] {
			continue
		}
		seen[a.PatientID] = true
		views = append(views, CriticalPatientView{
			PatientID: a.Patient.PatientID,
			Name:      a.Patient.User.Name,
			Condition: *a.Condition,
			Room:      *a.Room,
			UpdatedAt: a.UpdatedAt,
		})
	}
	return views, nil
}
