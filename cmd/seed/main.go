package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"educonnect/internal/audit"
	"educonnect/internal/auth"
	"educonnect/internal/cache"
	"educonnect/internal/config"
	"educonnect/internal/db"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/logger"
	"educonnect/internal/rbac"
	"educonnect/internal/repository"
	"educonnect/internal/service"
)

// seedActor is recorded as the actor of every seeded profile.
const seedActor = "system"

// SeedUser is one entry of a --users-file.
type SeedUser struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Username  string `yaml:"username"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Role      string `yaml:"role"`
	StudentID string `yaml:"student_id"`
}

func main() {
	var (
		email     = pflag.String("email", "", "email of the super administrator to provision")
		password  = pflag.String("password", "", "initial password; must satisfy the password policy")
		firstName = pflag.String("first-name", "Super", "first name")
		lastName  = pflag.String("last-name", "Admin", "last name")
		usersFile = pflag.String("users-file", "", "optional YAML list of additional users to provision")
	)
	pflag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	users := make([]SeedUser, 0, 1)
	if *email != "" {
		users = append(users, SeedUser{
			Email:     *email,
			Password:  *password,
			FirstName: *firstName,
			LastName:  *lastName,
			Role:      rbac.SuperAdmin.String(),
		})
	}
	if *usersFile != "" {
		fromFile, err := loadUsers(*usersFile)
		if err != nil {
			log.Fatal("read users file", zap.Error(err))
		}
		users = append(users, fromFile...)
	}
	if len(users) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to seed: pass --email and --password, or --users-file")
		pflag.Usage()
		os.Exit(2)
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB, false); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}
	log.Info("database ready")

	// Sessions and tokens are never issued here, so an in-process store is enough.
	kv := cache.NewMemory()
	userRepo := repository.NewUserRepository(gormDB)
	recorder := audit.NewRecorder(repository.NewAuditRepository(gormDB, log), audit.NewLookupResolver(cfg.OriginLookupURL, cfg.OriginLookupTimeout), log, audit.Config{})
	authService := service.NewAuthService(
		userRepo,
		repository.NewCredentialRepository(gormDB),
		auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		auth.NewTokenStore(kv),
		nil,
		auth.NewBroker(),
		recorder,
		log,
	)
	userService := service.NewUserService(userRepo, authService, kv, auth.NewBroker(), recorder, log)

	ctx := context.Background()
	created, skipped, err := seedUsers(ctx, userService, users, log)

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if cerr := recorder.Close(closeCtx); cerr != nil {
		log.Warn("flush audit trail", zap.Error(cerr))
	}
	if err != nil {
		log.Fatal("seed failed", zap.Error(err), zap.Int("created", created))
	}
	log.Info("seed completed", zap.Int("created", created), zap.Int("already_present", skipped))
}

func loadUsers(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var users []SeedUser
	if err := yaml.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return users, nil
}

// seedUsers provisions each user, leaving existing ones untouched.
func seedUsers(ctx context.Context, svc service.UserService, users []SeedUser, log *zap.Logger) (created, skipped int, err error) {
	for _, u := range users {
		_, err := svc.Create(ctx, seedActor, service.CreateUserInput{
			Email:     u.Email,
			Password:  u.Password,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role,
			StudentID: u.StudentID,
		})
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			log.Info("user already exists, skipping", zap.String("email", u.Email))
			skipped++
		case err != nil:
			return created, skipped, fmt.Errorf("provision %s: %w", u.Email, err)
		default:
			log.Info("user provisioned", zap.String("email", u.Email), zap.String("role", u.Role))
			created++
		}
	}
	return created, skipped, nil
}
