package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"hospital-portal-server/internal/config"
	"hospital-portal-server/internal/logger"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/monitoring"
	"hospital-portal-server/internal/routes"
	"hospital-portal-server/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-portal-server",
		Short: "Doctor, nurse and patient portal API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; real environments set variables directly.
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userAddCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and connects to the database.
func bootstrap() (*config.Config, *logger.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return cfg, log, db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := monitoring.NewMetrics()
	svc := services.New(db, cfg, log, metrics)
	router := routes.NewRouter(svc, cfg, log, metrics)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, _, err := bootstrap()
			if err != nil {
				return err
			}
			log.Info("Database schema is up to date")
			return nil
		},
	}
}

func userAddCmd() *cobra.Command {
	var in services.NewUser
	var role string

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a doctor, nurse or patient account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			in.Role = models.Role(strings.ToUpper(role))
			svc := services.New(db, cfg, log, monitoring.NewMetrics())
			user, err := svc.Auth.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", strings.ToLower(string(user.Role)), user.RoleSpecificID(), user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password (min 8 characters)")
	cmd.Flags().StringVar(&role, "role", "", "DOCTOR, NURSE or PATIENT")
	cmd.Flags().StringVar(&in.RoleID, "role-id", "", "doctor ID, nurse ID or patient ID (VUG/PAT/XX/XXXX)")
	cmd.Flags().StringVar(&in.Specialization, "specialization", "", "doctor specialization")
	cmd.Flags().StringVar(&in.Shift, "shift", "", "nurse shift")
	for _, name := range []string{"name", "email", "password", "role", "role-id"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
