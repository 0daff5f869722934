package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"medtrack-server/internal/config"
	"medtrack-server/internal/logger"
	"medtrack-server/internal/models"
	"medtrack-server/internal/routes"
	"medtrack-server/internal/seed"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

var (
	v          = viper.New()
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medtrack-server",
		Short:         "Patient medication tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (env, yaml or json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("port", "", "HTTP port (overrides PORT)")
	_ = v.BindPFlag("PORT", serveCmd.Flags().Lookup("port"))

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo patients, medications and assignments",
		RunE:  runSeed,
	}

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with JWT_SECRET",
		RunE:  runToken,
	}
	tokenCmd.Flags().String("subject", "frontend", "token subject")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env (when present), the optional config file and the
// environment.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	envErr := godotenv.Load()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := config.LoadConfig(v)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.IsDev())
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("Could not load .env file")
	}
	return cfg, log, nil
}

func openDB(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: logger.NewGormLogger(log),
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Connected to database")
	return db, nil
}

func systemClock(cfg *config.Config) (services.Clock, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return services.SystemClock{Location: loc}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	clock, err := systemClock(cfg)
	if err != nil {
		return err
	}

	if cfg.SeedOnStart {
		if _, err := seed.Run(cmd.Context(), db, clock, log); err != nil {
			return err
		}
	}

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.AuthEnabled() {
		log.Warn().Msg("JWT_SECRET is not set, API authentication is disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(db, cfg, clock, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("origin", cfg.Origin).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	// InitDB migrates as part of opening the connection.
	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("Migrations complete")
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	clock, err := systemClock(cfg)
	if err != nil {
		return err
	}
	_, err = seed.Run(cmd.Context(), db, clock, log)
	return err
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.AuthEnabled() {
		return errors.New("JWT_SECRET is not set")
	}
	subject, _ := cmd.Flags().GetString("subject")
	token, err := utils.GenerateToken(subject, cfg.JWTSecret, time.Duration(cfg.JWTExpirationMinutes)*time.Minute)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
