package models

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleDoctor  Role = "DOCTOR"
	RoleNurse   Role = "NURSE"
	RolePatient Role = "PATIENT"
)

// Valid reports whether r is one of the three portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleNurse, RolePatient:
		return true
	}
	return false
}

// Home is the landing path of the role's portal, e.g. "/doctor".
func (r Role) Home() string {
	return "/" + strings.ToLower(string(r))
}

// Label is the human name used in role-specific error messages.
func (r Role) Label() string {
	switch r {
	case RoleDoctor:
		return "Doctor"
	case RoleNurse:
		return "Nurse"
	case RolePatient:
		return "Patient"
	}
	return "User"
}

// PatientIDPattern is the format of patient display IDs, e.g. VUG/PAT/25/0111.
var PatientIDPattern = regexp.MustCompile(`^VUG/PAT/\d{2}/\d{4}$`)

// User represents a login identity. Exactly one of Patient, Doctor, Nurse
// is set, matching Role.
type User struct {
	BaseModel
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Phone    string `gorm:"size:50" json:"phone,omitempty"`
	Avatar   string `gorm:"size:255" json:"avatar,omitempty"`
	Role     Role   `gorm:"size:20;not null" json:"role"`

	Patient *Patient `gorm:"foreignKey:UserID;references:ID" json:"patient,omitempty"`
	Doctor  *Doctor  `gorm:"foreignKey:UserID;references:ID" json:"doctor,omitempty"`
	Nurse   *Nurse   `gorm:"foreignKey:UserID;references:ID" json:"nurse,omitempty"`
}

// Patient is the patient profile attached to a PATIENT user.
type Patient struct {
	BaseModel
	PatientID string     `gorm:"column:patient_id;uniqueIndex;size:32;not null" json:"patientId"`
	UserID    string     `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Gender    string     `gorm:"size:20" json:"gender"`
	BloodType string     `gorm:"size:5" json:"bloodType"`
	LastVisit *time.Time `json:"lastVisit,omitempty"`

	User      User      `gorm:"foreignKey:UserID;references:ID" json:"user"`
	Allergies []Allergy `gorm:"foreignKey:PatientID;references:ID" json:"allergies,omitempty"`
}

// Doctor is the doctor profile attached to a DOCTOR user.
type Doctor struct {
	BaseModel
	DoctorID       string `gorm:"column:doctor_id;uniqueIndex;size:32;not null" json:"doctorId"`
	UserID         string `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Specialization string `gorm:"size:100" json:"specialization,omitempty"`

	User User `gorm:"foreignKey:UserID;references:ID" json:"user"`
}

// Nurse is the nurse profile attached to a NURSE user.
type Nurse struct {
	BaseModel
	NurseID string `gorm:"column:nurse_id;uniqueIndex;size:32;not null" json:"nurseId"`
	UserID  string `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Shift   string `gorm:"size:20" json:"shift,omitempty"`
	Bio     string `gorm:"size:160" json:"bio,omitempty"`

	User User `gorm:"foreignKey:UserID;references:ID" json:"user"`
}

// Allergy is a recorded patient allergy.
type Allergy struct {
	BaseModel
	PatientID string `gorm:"size:36;index;not null" json:"patientId"`
	Name      string `gorm:"size:100;not null" json:"name"`
	Severity  string `gorm:"size:20" json:"severity,omitempty"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// RoleSpecificID returns the display ID of the profile matching the user's
// role, or "" when the profile is not loaded or missing.
func (u *User) RoleSpecificID() string {
	switch u.Role {
	case RolePatient:
		if u.Patient != nil {
			return u.Patient.PatientID
		}
	case RoleDoctor:
		if u.Doctor != nil {
			return u.Doctor.DoctorID
		}
	case RoleNurse:
		if u.Nurse != nil {
			return u.Nurse.NurseID
		}
	}
	return ""
}
