package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"hospital-portal-server/internal/config"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthService authenticates users and creates accounts.
type AuthService struct {
	base
	cfg *config.Config
}

// Authenticate checks email, role-specific ID and password, in that order,
// and returns the session payload for the user.
func (s *AuthService) Authenticate(ctx context.Context, email, password, roleID string) (*utils.SessionPayload, error) {
	payload, err := s.authenticate(ctx, strings.TrimSpace(email), password, strings.TrimSpace(roleID))
	if err != nil {
		s.metrics.RecordAuthAttempt("failure")
		var appErr *utils.AppError
		if errors.As(err, &appErr) && appErr.Kind == utils.KindUnauthorized {
			s.log.Security("login_failed", logrus.Fields{"email": email, "reason": appErr.Message})
		}
		return nil, err
	}
	s.metrics.RecordAuthAttempt("success")
	s.log.WithUserID(payload.UserID).WithField("role", payload.Role).Info("User signed in")
	return payload, nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password, roleID string) (*utils.SessionPayload, error) {
	var user models.User
	err := s.dbc(ctx).
		Preload("Patient").Preload("Doctor").Preload("Nurse").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, s.lookup(err, utils.InvalidCredentials("User does not exist"), "Failed to sign in", logrus.Fields{"email": email})
	}

	if !user.Role.Valid() {
		return nil, utils.ErrInvalidRole
	}

	if user.RoleSpecificID() == "" || user.RoleSpecificID() != roleID {
		return nil, utils.InvalidCredentials("Invalid " + user.Role.Label() + " ID")
	}

	if !user.CheckPassword(password) {
		return nil, utils.InvalidCredentials("Invalid password")
	}

	return &utils.SessionPayload{
		UserID:         user.ID,
		Name:           user.Name,
		Role:           user.Role,
		RoleSpecificID: user.RoleSpecificID(),
		Email:          user.Email,
	}, nil
}

// Login authenticates and signs a session token.
func (s *AuthService) Login(ctx context.Context, email, password, roleID string) (string, *utils.SessionPayload, error) {
	payload, err := s.Authenticate(ctx, email, password, roleID)
	if err != nil {
		return "", nil, err
	}
	token, err := utils.IssueSession(*payload, s.cfg.SessionSecret, s.SessionTTL())
	if err != nil {
		return "", nil, s.failed(err, "Failed to sign in", logrus.Fields{"user_id": payload.UserID})
	}
	return token, payload, nil
}

// SessionTTL is the configured session lifetime.
func (s *AuthService) SessionTTL() time.Duration {
	if s.cfg == nil || s.cfg.SessionTTLHours <= 0 {
		return utils.DefaultSessionTTL
	}
	return time.Duration(s.cfg.SessionTTLHours) * time.Hour
}

// SecureCookies reports whether session cookies must be Secure.
func (s *AuthService) SecureCookies() bool {
	return s.cfg != nil && s.cfg.IsProduction()
}

// NewUser is the input for account creation.
type NewUser struct {
	Name           string      `json:"name" binding:"required,min=2"`
	Email          string      `json:"email" binding:"required,email"`
	Password       string      `json:"password" binding:"required,min=8"`
	Role           models.Role `json:"role" binding:"required,oneof=DOCTOR NURSE PATIENT"`
	RoleID         string      `json:"roleId" binding:"required"`
	Phone          string      `json:"phone"`
	Gender         string      `json:"gender"`
	BloodType      string      `json:"bloodType" binding:"omitempty,max=5"`
	Specialization string      `json:"specialization"`
	Shift          string      `json:"shift"`
}

// Register creates a user together with the profile of its role.
func (s *AuthService) Register(ctx context.Context, in NewUser) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.RoleID = strings.TrimSpace(in.RoleID)
	if err := utils.ValidateInput(in); err != nil {
		return nil, err
	}
	if in.Role == models.RolePatient && !models.PatientIDPattern.MatchString(in.RoleID) {
		return nil, utils.ValidationError(map[string]string{
			"roleId": "Patient ID must be in the format VUG/PAT/XX/XXXX",
		})
	}

	user := models.User{Name: in.Name, Email: in.Email, Phone: in.Phone, Role: in.Role}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, s.failed(err, "Failed to create account", nil)
	}

	err := s.dbc(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		switch in.Role {
		case models.RolePatient:
			user.Patient = &models.Patient{PatientID: in.RoleID, UserID: user.ID, Gender: in.Gender, BloodType: in.BloodType}
			return tx.Create(user.Patient).Error
		case models.RoleDoctor:
			user.Doctor = &models.Doctor{DoctorID: in.RoleID, UserID: user.ID, Specialization: in.Specialization}
			return tx.Create(user.Doctor).Error
		default:
			user.Nurse = &models.Nurse{NurseID: in.RoleID, UserID: user.ID, Shift: in.Shift}
			return tx.Create(user.Nurse).Error
		}
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, utils.ConflictError(utils.CodeDuplicate, "Email or "+in.Role.Label()+" ID already exists")
		}
		return nil, s.failed(err, "Failed to create account", logrus.Fields{"email": in.Email})
	}

	s.log.Audit(user.ID, "register", "user", logrus.Fields{"role": in.Role})
	return &user, nil
}
