package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plakabul/plakabul/internal/images"
	"github.com/plakabul/plakabul/internal/models"
	"github.com/plakabul/plakabul/internal/store"
	"github.com/plakabul/plakabul/internal/validate"
)

// Env carries the handler dependencies. Repo is nil when the backing store
// failed to initialize; the server then runs degraded, answering health
// checks while every data operation fails with a storage error.
type Env struct {
	Repo   store.PlakaRepository
	Images *images.Store
}

// storageReady rejects the request with a 500 when the store never came up.
func (e *Env) storageReady(c *gin.Context) bool {
	if e.Repo == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Storage is unavailable"})
		return false
	}
	return true
}

// respondError maps the error taxonomy onto HTTP statuses: rejected input is
// a 400 with the field message, a missing id is a 404, anything else is
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var fieldErr *validate.FieldError
	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fieldErr.Message})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Plaka not found"})
	default:
		log.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid plaka ID"})
		return 0, false
	}
	return uint(id), true
}

// Health reports liveness. It answers even when the store is down.
func (e *Env) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "Plaka API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Index describes the API surface.
func (e *Env) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Plaka Bulma Platformu API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"health":          "/health",
			"plakalar":        "/plakalar",
			"plakalar-search": "/plakalar/search",
		},
	})
}

// GetPlakalar returns every post, newest first.
func (e *Env) GetPlakalar(c *gin.Context) {
	if !e.storageReady(c) {
		return
	}
	posts, err := e.Repo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": posts, "count": len(posts)})
}

// SearchPlakalar filters by free text and location. Empty parameters mean
// "no filter", so a bare /plakalar/search is equivalent to /plakalar.
func (e *Env) SearchPlakalar(c *gin.Context) {
	if !e.storageReady(c) {
		return
	}
	query := c.Query("q")
	location := c.Query("location")
	sortBy := c.DefaultQuery("sortBy", "newest")

	posts, err := e.Repo.Search(c.Request.Context(), query, location, sortBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": posts, "count": len(posts)})
}

// GetPlakaByID returns a single post or a 404.
func (e *Env) GetPlakaByID(c *gin.Context) {
	if !e.storageReady(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	post, err := e.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": post})
}

// CreatePlaka validates the multipart submission, stores the image, then
// persists the row. The image is written before the insert so a crash in
// between leaves at worst an orphaned file, never a row without a file.
func (e *Env) CreatePlaka(c *gin.Context) {
	if !e.storageReady(c) {
		return
	}

	title, err := validate.Title(c.PostForm("title"))
	if err != nil {
		respondError(c, err)
		return
	}
	description, err := validate.Description(c.PostForm("description"))
	if err != nil {
		respondError(c, err)
		return
	}
	location, err := validate.Location(c.PostForm("location"))
	if err != nil {
		respondError(c, err)
		return
	}
	plateNumber, err := validate.PlateNumber(c.PostForm("plateNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Title, description and image are required"})
		return
	}
	if err := validate.Image(fileHeader); err != nil {
		respondError(c, err)
		return
	}

	imageURL, err := e.Images.Save(fileHeader)
	if err != nil {
		log.Printf("Error storing image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to store image"})
		return
	}

	post := &models.PlakaPost{
		Title:       title,
		Description: description,
		ImageURL:    imageURL,
		Location:    location,
		PlateNumber: plateNumber,
	}
	if err := e.Repo.Create(c.Request.Context(), post); err != nil {
		if rmErr := e.Images.Remove(imageURL); rmErr != nil {
			log.Printf("Error cleaning up image %s: %v", imageURL, rmErr)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Plaka created successfully", "data": post})
}

// UpdatePlaka overwrites any subset of fields. A new image replaces the old
// one: the new file is written first, then the old file is removed
// best-effort, then the row is updated. Cleanup failures never block the
// update.
func (e *Env) UpdatePlaka(c *gin.Context) {
	if !e.storageReady(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	existing, err := e.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	fields := map[string]interface{}{}
	if v, present := c.GetPostForm("title"); present {
		title, err := validate.Title(v)
		if err != nil {
			respondError(c, err)
			return
		}
		fields["title"] = title
	}
	if v, present := c.GetPostForm("description"); present {
		description, err := validate.Description(v)
		if err != nil {
			respondError(c, err)
			return
		}
		fields["description"] = description
	}
	if v, present := c.GetPostForm("location"); present {
		location, err := validate.Location(v)
		if err != nil {
			respondError(c, err)
			return
		}
		fields["location"] = location
	}
	if v, present := c.GetPostForm("plateNumber"); present {
		plateNumber, err := validate.PlateNumber(v)
		if err != nil {
			respondError(c, err)
			return
		}
		fields["plate_number"] = plateNumber
	}

	if fileHeader, err := c.FormFile("image"); err == nil {
		if err := validate.Image(fileHeader); err != nil {
			respondError(c, err)
			return
		}
		imageURL, err := e.Images.Save(fileHeader)
		if err != nil {
			log.Printf("Error storing image: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to store image"})
			return
		}
		if rmErr := e.Images.Remove(existing.ImageURL); rmErr != nil {
			log.Printf("Error removing old image %s: %v", existing.ImageURL, rmErr)
		}
		fields["image_url"] = imageURL
	}

	if len(fields) > 0 {
		affected, err := e.Repo.Update(c.Request.Context(), id, fields)
		if err != nil {
			respondError(c, err)
			return
		}
		if affected == 0 {
			respondError(c, store.ErrNotFound)
			return
		}
	}

	updated, err := e.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Plaka updated successfully", "data": updated})
}

// DeletePlaka removes the post and its image. The image delete is
// best-effort; a file already gone does not stop the row from being removed.
func (e *Env) DeletePlaka(c *gin.Context) {
	if !e.storageReady(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	existing, err := e.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if rmErr := e.Images.Remove(existing.ImageURL); rmErr != nil {
		log.Printf("Error removing image %s: %v", existing.ImageURL, rmErr)
	}

	affected, err := e.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if affected == 0 {
		respondError(c, store.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Plaka deleted successfully"})
}
