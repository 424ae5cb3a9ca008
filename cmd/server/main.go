package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chessbick/doctor-appointment/docs"
	"github.com/chessbick/doctor-appointment/internal/auth"
	"github.com/chessbick/doctor-appointment/internal/cache"
	"github.com/chessbick/doctor-appointment/internal/config"
	"github.com/chessbick/doctor-appointment/internal/db"
	"github.com/chessbick/doctor-appointment/internal/handler"
	"github.com/chessbick/doctor-appointment/internal/model"
	"github.com/chessbick/doctor-appointment/internal/repository"
	"github.com/chessbick/doctor-appointment/internal/router"
	"github.com/chessbick/doctor-appointment/internal/service"
	"github.com/chessbick/doctor-appointment/pkg/logger"
)

// @title Doctor Appointment API
// @version 1.0
// @description Doctor-appointment booking API with account management, role-based users, and session-token authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.UserRole{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	userRepo := repository.NewUserRepository(gormDB)
	roleRepo := repository.NewRoleRepository(gormDB)

	// The role set is fixed; make sure it exists before serving traffic.
	if err := roleRepo.Seed(context.Background(), model.SeedRoles()); err != nil {
		log.Fatal().Err(err).Msg("seed roles")
	}

	hasher := auth.NewPasswordHasher()
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	sessions := auth.NewSessionStore(cacheClient)

	userService := service.NewUserService(userRepo, roleRepo, hasher, jwtService, sessions, cacheClient, log)

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	router.Register(e, cfg, authHandler, userHandler)

	addr := ":" + cfg.ServerPort
	log.Info().Str("addr", addr).Msg("starting server")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server start")
	}
}
