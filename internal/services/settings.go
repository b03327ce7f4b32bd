package services

import (
	"context"
	"strings"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsService reads and edits the nurse's own profile.
type SettingsService struct {
	base
}

const defaultShift = "Day"

// NurseSettings is the nurse settings form.
type NurseSettings struct {
	Name    string `json:"name" binding:"required,min=2"`
	Email   string `json:"email" binding:"required,email"`
	NurseID string `json:"nurseId"`
	Shift   string `json:"shift"`
	Bio     string `json:"bio" binding:"omitempty,min=4,max=160"`
}

func (s *SettingsService) load(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := tx.Preload("Nurse").Where("id = ? AND role = ?", userID, models.RoleNurse).First(&user).Error
	if err == nil && user.Nurse == nil {
		err = gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, s.lookup(err, utils.ErrNurseNotFound, "Failed to fetch settings", logrus.Fields{"user_id": userID})
	}
	return &user, nil
}

// Get returns the settings of the nurse logged in as userID.
func (s *SettingsService) Get(ctx context.Context, userID string) (*NurseSettings, error) {
	user, err := s.load(s.dbc(ctx), userID)
	if err != nil {
		return nil, err
	}
	return settingsOf(user), nil
}

func settingsOf(user *models.User) *NurseSettings {
	shift := user.Nurse.Shift
	if shift == "" {
		shift = defaultShift
	}
	return &NurseSettings{
		Name:    user.Name,
		Email:   user.Email,
		NurseID: user.Nurse.NurseID,
		Shift:   shift,
		Bio:     user.Nurse.Bio,
	}
}

// Update changes name, email and bio in one transaction. The nurse ID and
// shift are managed by administrators and ignored here.
func (s *SettingsService) Update(ctx context.Context, userID string, in NurseSettings) (*NurseSettings, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := utils.ValidateInput(in); err != nil {
		return nil, err
	}

	fields := logrus.Fields{"user_id": userID}
	var updated *models.User
	err := s.dbc(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.load(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Updates(map[string]interface{}{"name": in.Name, "email": in.Email}).Error; err != nil {
			return err
		}
		if err := tx.Model(user.Nurse).Update("bio", in.Bio).Error; err != nil {
			return err
		}
		user.Name, user.Email, user.Nurse.Bio = in.Name, in.Email, in.Bio
		updated = user
		return nil
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, utils.ConflictError(utils.CodeDuplicate, "Email or Nurse ID already exists. Please use different values.")
		}
		return nil, s.failed(err, "Failed to update settings. Please try again.", fields)
	}

	s.log.Audit(userID, "update", "nurse_settings", nil)
	return settingsOf(updated), nil
}
