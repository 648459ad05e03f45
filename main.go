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

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/c14220110/telekonsul-backend/config"
	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/notifikasi"
	"github.com/c14220110/telekonsul-backend/internal/routes"
	"github.com/c14220110/telekonsul-backend/pkg/logger"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/storage/mariadb"
	"github.com/c14220110/telekonsul-backend/pkg/storage/mongodb"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
	"github.com/c14220110/telekonsul-backend/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "telekonsul",
		Short: "Backend telekonsultasi dokter-pasien",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Menjalankan HTTP API dan websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Menjalankan migrasi MariaDB dan index MongoDB",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Terapkan semua migrasi yang belum jalan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(0)
		},
	})
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrasi",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return runMigrate(-steps)
		},
	}
	downCmd.Flags().Int("steps", 1, "Jumlah migrasi yang di-rollback")
	cmd.AddCommand(downCmd)
	return cmd
}

func runMigrate(steps int) error {
	cfg := config.LoadConfig()
	log := logger.New(cfg.IsDevelopment())
	ctx := context.Background()

	db, err := mariadb.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := mariadb.Migrate(db, steps); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info().Int("steps", steps).Msg("mariadb migrations applied")

	if steps < 0 {
		return nil
	}
	client, mdb, err := mongodb.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	if err := mongodb.EnsureIndexes(ctx, mdb); err != nil {
		return err
	}
	log.Info().Msg("mongodb indexes ensured")
	return nil
}

func runServer() error {
	cfg := config.LoadConfig()
	log := logger.New(cfg.IsDevelopment())
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mariadb.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Msg("connected to mariadb")

	client, mdb, err := mongodb.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	if err := mongodb.EnsureIndexes(ctx, mdb); err != nil {
		return err
	}
	log.Info().Str("database", cfg.MongoDB).Msg("connected to mongodb")

	stores := storage.Stores{
		Users:         mariadb.NewUserStore(db),
		Doctors:       mariadb.NewDoctorStore(db),
		Ratings:       mariadb.NewRatingStore(db),
		DeviceTokens:  mariadb.NewDeviceTokenStore(db),
		Consultations: mongodb.NewConsultationStore(mdb),
		Chats:         mongodb.NewChatStore(mdb),
		Messages:      mongodb.NewMessageStore(mdb),
	}

	files := utils.NewFileStorage(cfg.UploadRoot, cfg.MaxUploadBytes)
	if err := files.EnsureDirs(); err != nil {
		return fmt.Errorf("prepare upload dirs: %w", err)
	}

	notifier := notifikasi.NewAsync(newNotifier(ctx, cfg, stores, log), log)

	// hub punya context sendiri supaya masih bisa broadcast saat shutdown
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub(log)
	go hub.Run(hubCtx)

	reminder := notifikasi.NewReminder(stores.Consultations, stores.Doctors, notifier, cfg.ReminderInterval, cfg.ReminderAfter, log)
	scheduler, err := reminder.Start()
	if err != nil {
		return fmt.Errorf("start reminder: %w", err)
	}
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middlewares.RequestLogger(log))

	routes.Init(e, routes.Deps{
		Config:   cfg,
		Stores:   stores,
		Files:    files,
		Hub:      hub,
		Notifier: notifier,
		Log:      log,
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Msg("server berjalan")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")
	if err := hub.BroadcastEvent(ws.EventServerShutdown, nil); err != nil {
		log.Warn().Err(err).Msg("broadcast shutdown event failed")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	stopHub()
	log.Info().Msg("server stopped")
	return nil
}

// newNotifier memakai FCM jika service account tersedia, selain itu no-op.
func newNotifier(ctx context.Context, cfg *config.Config, stores storage.Stores, log zerolog.Logger) notifikasi.Notifier {
	if cfg.FirebaseServiceAccountPath == "" {
		log.Warn().Msg("FIREBASE_SERVICE_ACCOUNT_PATH not set, push notifications disabled")
		return notifikasi.NoopNotifier{Log: log}
	}
	fcm, err := notifikasi.NewFCMNotifier(ctx, cfg.FirebaseServiceAccountPath, stores.DeviceTokens, log)
	if err != nil {
		log.Error().Err(err).Msg("firebase init failed, push notifications disabled")
		return notifikasi.NoopNotifier{Log: log}
	}
	return fcm
}
