package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"natsdash/internal/alerts"
	"natsdash/internal/broker"
	"natsdash/internal/config"
	"natsdash/internal/handlers"
	"natsdash/internal/middleware"
	"natsdash/internal/models"
	"natsdash/internal/notify"
	"natsdash/internal/store"
	"natsdash/internal/utils"
	"natsdash/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "natsdash:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	log := utils.NewLogger(cfg.LogFile)
	defer log.Close()
	log.Writef("natsdash %s starting", version.String())

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	repo := store.NewRepository(db)

	auth := middleware.NewAuthService()
	if err := bootstrapAdmin(repo, auth, cfg, log); err != nil {
		return err
	}

	hub := middleware.NewHub(log)
	go hub.Run()

	dispatcher := notify.NewDispatcher(log)
	scheduler := alerts.NewScheduler(repo, dispatcher, hub, log)
	scheduler.AutoStart(context.Background())

	browser := broker.NewBrowser()
	defer browser.Close()

	limiter := middleware.NewRateLimiter(20, 40)
	defer limiter.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(limiter.Middleware())

	api := handlers.NewAPI(repo, auth, scheduler, dispatcher, browser, hub, log)
	api.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Writef("listening on %s", cfg.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Writef("received %s, shutting down", sig)
	}

	scheduler.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Write("shutdown complete")
	return nil
}

// bootstrapAdmin creates the first account when the users table is empty.
// Without NATSDASH_ADMIN_PASSWORD a random password is generated and logged
// once.
func bootstrapAdmin(repo *store.Repository, auth *middleware.AuthService, cfg config.Config, log *utils.Logger) error {
	ctx := context.Background()
	n, err := repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	password := cfg.AdminPassword
	generated := false
	if password == "" {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		password = hex.EncodeToString(buf)
		generated = true
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := repo.CreateUser(ctx, cfg.AdminUser, hash, models.RoleAdmin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	if generated {
		log.Writef("created admin user %q with generated password: %s", cfg.AdminUser, password)
	} else {
		log.Writef("created admin user %q", cfg.AdminUser)
	}
	return nil
}
