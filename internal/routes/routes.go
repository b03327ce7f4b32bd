package routes

import (
	"net/http"

	"hospital-portal-server/internal/config"
	"hospital-portal-server/internal/handlers"
	"hospital-portal-server/internal/logger"
	"hospital-portal-server/internal/middleware"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/monitoring"
	"hospital-portal-server/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with CORS, metrics, request logging and
// the session gate installed ahead of every route.
func NewRouter(svc *services.Services, cfg *config.Config, log *logger.Logger, metrics *monitoring.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	router.Use(
		metrics.GinMiddleware(),
		middleware.SessionMiddleware(cfg.SessionSecret),
		middleware.RequestLogger(log),
		middleware.RouteGateMiddleware(),
	)

	SetupRoutes(router, svc, metrics)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, svc *services.Services, metrics *monitoring.Metrics) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	appointmentHandler := handlers.NewAppointmentHandler(svc)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(svc)
	userHandler := handlers.NewUserHandler(svc)
	dashboardHandler := handlers.NewDashboardHandler(svc)

	// Public routes. The gate sends logged-in users away from /login and
	// /register before these run.
	router.POST("/login", authHandler.Login)
	router.POST("/register", authHandler.Register)
	router.POST("/logout", authHandler.Logout)
	router.GET("/session", authHandler.Session)

	doctor := router.Group("/doctor", middleware.RequireRole(models.RoleDoctor))
	{
		doctor.GET("", dashboardHandler.DoctorOverview)
		doctor.GET("/appointments", appointmentHandler.Today)
		doctor.GET("/appointments/completed", appointmentHandler.Completed)
		doctor.POST("/appointments/:id/start", appointmentHandler.Start)
		doctor.POST("/appointments/:id/vitals", appointmentHandler.RecordVitals)
		doctor.PATCH("/appointments/:id/status", appointmentHandler.UpdateStatus)
		doctor.GET("/consultation/:id", medicalRecordHandler.Consultation)
		doctor.POST("/consultation/:id", medicalRecordHandler.SaveConsultation)
		doctor.GET("/patients", userHandler.DoctorPatients)
		// Patient display IDs contain slashes.
		doctor.GET("/patients/*patientId", userHandler.PatientDetails)
	}

	nurse := router.Group("/nurse", middleware.RequireRole(models.RoleNurse))
	{
		nurse.GET("", dashboardHandler.NurseOverview)
		nurse.GET("/appointments/requests", appointmentHandler.PendingRequests)
		nurse.POST("/appointments/requests", appointmentHandler.CreateRequest)
		nurse.POST("/appointments/requests/:id/schedule", appointmentHandler.Schedule)
		nurse.GET("/appointments", appointmentHandler.Scheduled)
		nurse.POST("/appointments/:id/vitals", appointmentHandler.RecordVitals)
		nurse.PATCH("/appointments/:id/status", appointmentHandler.UpdateStatus)
		nurse.GET("/doctors", appointmentHandler.Doctors)
		nurse.POST("/patients", userHandler.IntakePatient)
		nurse.GET("/tasks", dashboardHandler.ListTasks)
		nurse.POST("/tasks", dashboardHandler.CreateTask)
		nurse.PATCH("/tasks/:id/status", dashboardHandler.UpdateTaskStatus)
		nurse.POST("/tasks/:id/complete", dashboardHandler.CompleteTask)
		nurse.GET("/settings", userHandler.GetSettings)
		nurse.PUT("/settings", userHandler.UpdateSettings)
	}

	patient := router.Group("/patient", middleware.RequireRole(models.RolePatient))
	{
		patient.GET("", userHandler.PatientProfile)
		patient.GET("/appointments", appointmentHandler.PatientAppointments)
		patient.POST("/appointment-requests", appointmentHandler.CreateOwnRequest)
		patient.GET("/medical-history", medicalRecordHandler.MedicalHistory)
		patient.GET("/medical-history/download", medicalRecordHandler.DownloadMedicalHistory)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
