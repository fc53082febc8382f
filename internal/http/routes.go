package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env, corsOrigin, uploadDir string) {

	// --- Middleware ---

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---

	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.Sweep()
		}
	}()

	// --- API Routes ---

	router.GET("/", env.Index)
	router.GET("/health", env.Health)

	plakalar := router.Group("/plakalar")
	{
		// Registered ahead of /:id so "search" is never parsed as an id.
		plakalar.GET("/search", env.SearchPlakalar)
		plakalar.GET("", env.GetPlakalar)
		plakalar.GET("/:id", env.GetPlakaByID)
		plakalar.POST("", RateLimitMiddleware(limiter), env.CreatePlaka)
		plakalar.PUT("/:id", RateLimitMiddleware(limiter), env.UpdatePlaka)
		plakalar.DELETE("/:id", env.DeletePlaka)
	}

	// --- Uploaded images, read-only and cross-origin-readable ---

	uploads := router.Group("/uploads", UploadsCORSMiddleware())
	uploads.Static("/", uploadDir)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint not found"})
	})
}
