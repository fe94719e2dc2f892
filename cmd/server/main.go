package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "educonnect/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"educonnect/internal/audit"
	"educonnect/internal/auth"
	"educonnect/internal/cache"
	"educonnect/internal/config"
	"educonnect/internal/db"
	"educonnect/internal/guard"
	"educonnect/internal/handler"
	"educonnect/internal/logger"
	"educonnect/internal/rbac"
	"educonnect/internal/repository"
	"educonnect/internal/router"
	"educonnect/internal/service"
	"educonnect/internal/session"
)

// @title EduConnect API
// @version 1.0
// @description Attendance, events and notifications for the EduConnect student and admin portals.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("database init", zap.Error(err))
	}
	if cfg.ResetDB {
		log.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, sessions and token revocation degrade until it returns", zap.Error(err))
	}
	cancelPing()

	pages, err := rbac.LoadPages(cfg.PagesFile)
	if err != nil {
		log.Fatal("load page table", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	credRepo := repository.NewCredentialRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)
	attendanceRepo := repository.NewAttendanceRepository(gormDB, log)
	notificationRepo := repository.NewNotificationRepository(gormDB)
	reportRepo := repository.NewReportRepository(gormDB)
	auditRepo := repository.NewAuditRepository(gormDB, log)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)
	broker := auth.NewBroker()
	sessions := session.NewKVStore(cacheClient, cfg.SessionTTL)

	var revoker auth.CredentialRevoker = auth.NoopRevoker{}
	if cfg.FirebaseCredentials != "" {
		fb, err := auth.NewFirebaseRevoker(context.Background(), cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal("firebase init", zap.Error(err))
		}
		revoker = fb
		log.Info("firebase credential revocation enabled")
	}

	recorder := audit.NewRecorder(auditRepo, audit.NewLookupResolver(cfg.OriginLookupURL, cfg.OriginLookupTimeout), log.Named("audit"), audit.Config{
		Buffer:        cfg.AuditBuffer,
		Batch:         cfg.AuditBatch,
		FlushInterval: cfg.AuditFlushInterval,
	})

	// Initialize services
	loc := time.Local
	authService := service.NewAuthService(userRepo, credRepo, jwtService, tokenStore, revoker, broker, recorder, log.Named("auth"))
	userService := service.NewUserService(userRepo, authService, cacheClient, broker, recorder, log.Named("users"))
	eventService := service.NewEventService(eventRepo, userRepo, recorder)
	attendanceService := service.NewAttendanceService(attendanceRepo, eventRepo, userRepo, recorder, loc)
	notificationService := service.NewNotificationService(notificationRepo, recorder)
	reportService := service.NewReportService(reportRepo, attendanceRepo, eventRepo, userRepo, recorder, log.Named("reports"), loc)
	auditService := service.NewAuditService(auditRepo, userRepo, loc)
	dashboardService := service.NewDashboardService(userRepo, eventRepo, attendanceRepo, notificationRepo, auditRepo, auditService)
	profileService := service.NewProfileService(userRepo, authService, broker, recorder)

	accessGuard := guard.New(userRepo, authService, sessions, pages, log.Named("guard"), guard.Config{
		VerifyTimeout: cfg.GuardVerifyTimeout,
		IdleTTL:       cfg.SessionTTL,
	})

	e := echo.New()
	e.HideBanner = true

	// Register routes
	router.Register(e, log, jwtService, tokenStore, router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Guard:         handler.NewGuardHandler(accessGuard, broker, sessions, log.Named("guard")),
		Users:         handler.NewUserHandler(userService),
		Events:        handler.NewEventHandler(eventService),
		Attendance:    handler.NewAttendanceHandler(attendanceService),
		Notifications: handler.NewNotificationHandler(notificationService),
		Reports:       handler.NewReportHandler(reportService),
		Audit:         handler.NewAuditHandler(auditService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		Profile:       handler.NewProfileHandler(profileService),
	})

	log.Info("swagger documentation available", zap.String("url", swaggerURL(cfg.SwaggerHost, cfg.ServerPort)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server starting", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	if err := recorder.Close(shutdownCtx); err != nil {
		log.Error("flush audit trail", zap.Error(err))
	}
}

// swaggerURL accepts SWAGGER_HOST with or without a scheme.
func swaggerURL(host, port string) string {
	switch {
	case host == "":
		return "http://localhost:" + port + "/swagger/index.html"
	case strings.HasPrefix(host, "http://"), strings.HasPrefix(host, "https://"):
		return host + "/swagger/index.html"
	default:
		return "http://" + host + "/swagger/index.html"
	}
}
