// Command seed prepares a fresh database: it runs migrations, inserts the
// fixed role set, and bootstraps an administrator account from environment
// variables so the API is usable immediately after deployment.
package main

import (
	"context"
	"os"

	"github.com/chessbick/doctor-appointment/internal/auth"
	"github.com/chessbick/doctor-appointment/internal/cache"
	"github.com/chessbick/doctor-appointment/internal/config"
	"github.com/chessbick/doctor-appointment/internal/db"
	"github.com/chessbick/doctor-appointment/internal/model"
	"github.com/chessbick/doctor-appointment/internal/repository"
	"github.com/chessbick/doctor-appointment/internal/service"
	"github.com/chessbick/doctor-appointment/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("starting seed")

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Role{}, &model.UserRole{}); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	ctx := context.Background()

	roleRepo := repository.NewRoleRepository(gormDB)
	if err := roleRepo.Seed(ctx, model.SeedRoles()); err != nil {
		log.Fatal().Err(err).Msg("seed roles")
	}
	log.Info().Msg("roles seeded")

	adminUsername := getEnv("SEED_ADMIN_USERNAME", "admin")
	adminEmail := getEnv("SEED_ADMIN_EMAIL", "admin@example.com")
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Info().Msg("SEED_ADMIN_PASSWORD not set, skipping admin bootstrap")
		return
	}

	userRepo := repository.NewUserRepository(gormDB)
	exists, err := userRepo.UsernameExists(ctx, adminUsername)
	if err != nil {
		log.Fatal().Err(err).Msg("check admin username")
	}
	if exists {
		log.Info().Str("username", adminUsername).Msg("admin account already present")
		return
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	hasher := auth.NewPasswordHasher()
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	sessions := auth.NewSessionStore(cacheClient)

	users := service.NewUserService(userRepo, roleRepo, hasher, jwtService, sessions, cacheClient, log)

	view, err := users.Register(ctx, service.RegisterInput{
		Username:  adminUsername,
		Email:     adminEmail,
		Password:  adminPassword,
		RoleIDs:   []uint{model.RoleAdmin},
		FirstName: "System",
		LastName:  "Administrator",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create admin account")
	}

	log.Info().Uint("user_id", view.ID).Str("username", view.Username).Msg("admin account created")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
