package models

import (
	"strings"
	"time"
)

// AppointmentType is shared by requests and appointments.
type AppointmentType string

const (
	TypeCheckUp      AppointmentType = "CHECK_UP"
	TypeFollowUp     AppointmentType = "FOLLOW_UP"
	TypeConsultation AppointmentType = "CONSULTATION"
	TypeEmergency    AppointmentType = "EMERGENCY"
)

// Priority of an appointment request or a nurse task.
type Priority string

const (
	PriorityNormal    Priority = "NORMAL"
	PriorityUrgent    Priority = "URGENT"
	PriorityEmergency Priority = "EMERGENCY"
)

// RequestStatus is the lifecycle of an AppointmentRequest.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestScheduled RequestStatus = "SCHEDULED"
	RequestCompleted RequestStatus = "COMPLETED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "SCHEDULED"
	StatusInProgress AppointmentStatus = "IN_PROGRESS"
	StatusCompleted  AppointmentStatus = "COMPLETED"
	StatusCancelled  AppointmentStatus = "CANCELLED"
)

// ConditionStatus describes how a patient is doing.
type ConditionStatus string

const (
	ConditionStable    ConditionStatus = "STABLE"
	ConditionFollowUp  ConditionStatus = "FOLLOW_UP"
	ConditionCritical  ConditionStatus = "CRITICAL"
	ConditionEmergency ConditionStatus = "EMERGENCY"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestScheduled, RequestCancelled},
	RequestScheduled: {RequestCompleted, RequestCancelled},
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// Valid reports enum membership.
func (t AppointmentType) Valid() bool {
	switch t {
	case TypeCheckUp, TypeFollowUp, TypeConsultation, TypeEmergency:
		return true
	}
	return false
}

// Valid reports enum membership.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityEmergency:
		return true
	}
	return false
}

// CanTransitionTo reports whether the request may move to next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports enum membership.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal is true for COMPLETED and CANCELLED.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the appointment may move to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseAppointmentStatus accepts both the stored form ("IN_PROGRESS") and
// the dashboard form ("in-progress").
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	status := AppointmentStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	return status, status.Valid()
}

// AppointmentRequest is a patient's (or a nurse's walk-in) ask for an
// appointment, waiting in the nurse queue until scheduled.
type AppointmentRequest struct {
	BaseModel
	PatientID     string          `gorm:"size:36;index;not null" json:"patientId"`
	PreferredDate time.Time       `gorm:"index" json:"preferredDate"`
	Type          AppointmentType `gorm:"size:20;not null" json:"type"`
	Reason        string          `gorm:"type:text" json:"reason"`
	Priority      Priority        `gorm:"size:20;default:'NORMAL'" json:"priority"`
	Status        RequestStatus   `gorm:"size:20;default:'PENDING';index" json:"status"`

	Patient Patient `json:"patient"`
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel
	PatientID     string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID      string            `gorm:"size:36;index;not null" json:"doctorId"`
	Date          time.Time         `gorm:"index" json:"date"`
	Time          string            `gorm:"size:10" json:"time"`
	Type          AppointmentType   `gorm:"size:20;not null" json:"type"`
	Status        AppointmentStatus `gorm:"size:20;default:'SCHEDULED';index" json:"status"`
	Reason        string            `gorm:"type:text" json:"reason"`
	VitalsChecked bool              `gorm:"default:false" json:"vitalsChecked"`
	Condition     *ConditionStatus  `gorm:"size:20" json:"condition,omitempty"`
	Room          *string           `gorm:"size:20" json:"room,omitempty"`

	// Relations
	Patient Patient  `json:"patient"`
	Doctor  Doctor   `json:"doctor"`
	Vitals  []Vitals `gorm:"foreignKey:AppointmentID;references:ID" json:"vitals,omitempty"`
}

// LatestVitals returns the most recently recorded reading, or nil.
func (a *Appointment) LatestVitals() *Vitals {
	var latest *Vitals
	for i := range a.Vitals {
		if latest == nil || a.Vitals[i].CreatedAt.After(latest.CreatedAt) {
			latest = &a.Vitals[i]
		}
	}
	return latest
}
