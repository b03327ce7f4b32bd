package handlers

import (
	"strings"

	"hospital-portal-server/internal/middleware"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/services"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Auth *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	RoleID   string `json:"roleId" binding:"required"`
	Redirect string `json:"redirect"`
}

// LoginResponse is returned on successful login. The token itself only
// travels in the session cookie.
type LoginResponse struct {
	User       utils.SessionPayload `json:"user"`
	RedirectTo string               `json:"redirectTo"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	token, payload, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password, req.RoleID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SetSessionCookie(c, token, h.Auth.SessionTTL(), h.Auth.SecureCookies())
	utils.Success(c, "Login successful", LoginResponse{
		User:       *payload,
		RedirectTo: redirectTarget(req.Redirect, payload),
	})
}

// redirectTarget honors the ?redirect= of the login page when it is a local
// path the user may actually open; otherwise the role home.
func redirectTarget(requested string, payload *utils.SessionPayload) string {
	home := payload.Role.Home()
	if requested == "" || !strings.HasPrefix(requested, "/") || strings.HasPrefix(requested, "//") {
		return home
	}
	claims := &utils.SessionClaims{SessionPayload: *payload}
	if !middleware.RouteGate(requested, claims).Allowed() {
		return home
	}
	return requested
}

// RegisterRequest represents the request body for patient self-registration.
type RegisterRequest struct {
	Name      string `json:"name" binding:"required,min=2"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	PatientID string `json:"patientId" binding:"required"`
	Phone     string `json:"phone"`
	Gender    string `json:"gender"`
	BloodType string `json:"bloodType"`
}

// Register creates a patient account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), services.NewUser{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      models.RolePatient,
		RoleID:    req.PatientID,
		Phone:     req.Phone,
		Gender:    req.Gender,
		BloodType: req.BloodType,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Registration successful", user)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	utils.ClearSessionCookie(c, h.Auth.SecureCookies())
	utils.Success(c, "Logged out successfully", gin.H{"redirectTo": "/"})
}

// Session returns the payload of the current session.
func (h *AuthHandler) Session(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		utils.Unauthorized(c, "Authentication required")
		return
	}
	utils.Success(c, "Session fetched successfully", session.SessionPayload)
}
