package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "clientbook/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"clientbook/internal/auth"
	"clientbook/internal/cache"
	"clientbook/internal/config"
	"clientbook/internal/db"
	"clientbook/internal/handler"
	"clientbook/internal/model"
	"clientbook/internal/repository"
	"clientbook/internal/router"
	"clientbook/internal/service"
	"clientbook/internal/storage"
)

// @title Client Management API
// @version 1.0
// @description REST backend for the client-management mobile app: users, clients, photo upload and JWT authentication.
// @host localhost:3000
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		for _, table := range []interface{}{&model.Client{}, &model.User{}} {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Client{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Printf("redis unavailable, running without cache: %v", err)
	}

	photoStore, err := storage.NewDiskPhotoStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("photo store init: %v", err)
	}

	userRepo := repository.NewUserRepository(gormDB)
	clientRepo := repository.NewClientRepository(gormDB)

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	sessionStore := auth.NewSessionStore(cacheClient)

	userService := service.NewUserService(userRepo, clientRepo, photoStore, jwtService, sessionStore)
	clientService := service.NewClientService(clientRepo, photoStore, cacheClient)

	userHandler := handler.NewUserHandler(userService)
	clientHandler := handler.NewClientHandler(clientService, photoStore)

	router.Register(e, cfg, userHandler, clientHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
