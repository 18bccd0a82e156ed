package cmd

import (
	"context"
	"fmt"
	"strings"

	"college-records/internal/api/handlers"
	"college-records/internal/api/router"
	"college-records/internal/config"
	"college-records/internal/infrastructure/cache"
	"college-records/internal/infrastructure/database"
	"college-records/internal/infrastructure/repository"
	"college-records/internal/infrastructure/repository/memory"
	interfaces "college-records/internal/interfaces/infrastructure"
	"college-records/internal/service"
	"college-records/pkg/logger"

	"gorm.io/gorm"
)

// app owns the store and lock handles for the lifetime of one command
type app struct {
	cfg         *config.Config
	store       interfaces.Store
	locker      interfaces.Locker
	credentials *service.CredentialService
	maintenance *service.MaintenanceService
	services    router.Services
	closers     []func() error
}

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.Username,
		Password:      cfg.Database.Password,
		DBName:        cfg.Database.Name,
		SSLMode:       cfg.Database.SSLMode,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
		MaxIdleConns:  cfg.Database.MaxIdleConns,
		MigrationsDir: cfg.Database.MigrationsDir,
	}
}

func connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewConnection(databaseConfig(cfg))
	if err != nil {
		return nil, err
	}
	return db, nil
}

// newApp opens the configured store and locker and builds every service.
// migrate applies pending SQL migrations first when the store is postgres.
func newApp(ctx context.Context, cfg *config.Config, migrate bool) (*app, error) {
	a := &app{cfg: cfg}

	switch strings.ToLower(cfg.Database.Driver) {
	case "memory":
		logger.Warn("Using the in-memory store; nothing will be persisted")
		a.store = memory.NewStore()
	case "", "postgres":
		db, err := connect(cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.Close(db) })
		if migrate {
			if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsDir); err != nil {
				a.Close()
				return nil, err
			}
		}
		a.store = repository.NewStore(db)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	switch strings.ToLower(cfg.Lock.Backend) {
	case "redis":
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		locker := cache.NewRedisLocker(addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Lock.Prefix)
		a.closers = append(a.closers, locker.Close)
		a.locker = locker
	case "", "local":
		a.locker = cache.NewLocalLocker()
	default:
		a.Close()
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Lock.Backend)
	}

	if err := a.store.Health(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("store is not healthy: %w", err)
	}

	a.credentials = service.NewCredentialService(a.store, service.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	reconciler := service.NewReconciliationService(a.store)
	enrollments := service.NewEnrollmentService(a.store)
	a.maintenance = service.NewMaintenanceService(a.store, a.locker, reconciler, enrollments, cfg.Lock.TTL)

	a.services = router.Services{
		Version:     cfg.App.Version,
		Credentials: a.credentials,
		Registry:    service.NewRegistryService(a.store),
		Reconciler:  reconciler,
		Enrollments: enrollments,
		Attendance:  service.NewAttendanceService(a.store),
		Marks:       service.NewMarksService(a.store),
		Maintenance: a.maintenance,
		Health: map[string]handlers.HealthChecker{
			"database": a.store,
			"lock":     a.locker,
		},
	}
	return a, nil
}

// Close releases handles in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to close resource: %v", err)
		}
	}
	a.closers = nil
}
