package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/plakabul/plakabul/internal/config"
	"github.com/plakabul/plakabul/internal/db"
	routes "github.com/plakabul/plakabul/internal/http"
	"github.com/plakabul/plakabul/internal/images"
	"github.com/plakabul/plakabul/internal/store"
)

func main() {
	// Load .env first. Missing files are fine; production sets env vars
	// directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// The store is optional at startup: if it cannot be opened or migrated
	// the server still starts and answers health checks, and every data
	// operation fails with a storage error until the next restart.
	var repo store.PlakaRepository
	if database, err := db.Init(cfg.DatabaseURL); err != nil {
		log.Printf("Database unavailable, running degraded: %v", err)
	} else if err := db.Migrate(database); err != nil {
		log.Printf("Migration failed, running degraded: %v", err)
	} else {
		log.Println("Migrations complete.")
		repo = store.NewPlakaRepository(database)
	}

	imageStore, err := images.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload directory: %v", err)
	}

	router := gin.New()
	env := &routes.Env{Repo: repo, Images: imageStore}
	routes.SetupRoutes(router, env, cfg.CORSOrigin, cfg.UploadDir)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
