package models

import (
	"time"
)

// Vitals is one set of readings taken during an appointment. Rows are never
// updated except to link them to the medical record of the consultation.
type Vitals struct {
	BaseModel
	AppointmentID   string  `gorm:"size:36;index;not null" json:"appointmentId"`
	MedicalRecordID *string `gorm:"size:36;index" json:"medicalRecordId,omitempty"`
	Temperature     string  `gorm:"size:20" json:"temperature"`
	BloodPressure   string  `gorm:"size:20" json:"bloodPressure"`
	HeartRate       string  `gorm:"size:20" json:"heartRate"`
	RespiratoryRate string  `gorm:"size:20" json:"respiratoryRate"`
	Weight          *string `gorm:"size:20" json:"weight,omitempty"`
	Height          *string `gorm:"size:20" json:"height,omitempty"`
}

// MedicalRecord is the documented outcome of a consultation.
type MedicalRecord struct {
	BaseModel
	PatientID string          `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID  string          `gorm:"size:36;index;not null" json:"doctorId"`
	Diagnosis string          `gorm:"type:text;not null" json:"diagnosis"`
	Treatment string          `gorm:"type:text" json:"treatment"`
	Condition ConditionStatus `gorm:"size:20;default:'STABLE'" json:"condition"`
	Date      time.Time       `gorm:"index" json:"date"`

	// Relations
	Patient Patient  `json:"-"`
	Doctor  Doctor   `json:"doctor"`
	Vitals  []Vitals `gorm:"foreignKey:MedicalRecordID;references:ID" json:"vitals,omitempty"`
}

// Medication is a prescription entered with a consultation.
type Medication struct {
	BaseModel
	PatientID string    `gorm:"size:36;index;not null" json:"patientId"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Dosage    string    `gorm:"size:100" json:"dosage"`
	Frequency string    `gorm:"size:100" json:"frequency"`
	StartDate time.Time `json:"startDate"`
}
