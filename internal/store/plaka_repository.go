package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/plakabul/plakabul/internal/models"
)

// ErrNotFound signals that no row exists for the requested id.
var ErrNotFound = errors.New("record not found")

// PlakaRepository is the persistence layer for PlakaPost rows. All reads
// reflect the latest committed write; there is no cache in front of it.
type PlakaRepository interface {
	Create(ctx context.Context, post *models.PlakaPost) error
	GetByID(ctx context.Context, id uint) (*models.PlakaPost, error)
	GetAll(ctx context.Context) ([]models.PlakaPost, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
	Search(ctx context.Context, query, location, sortBy string) ([]models.PlakaPost, error)
}

type plakaRepository struct {
	db *gorm.DB
}

// NewPlakaRepository returns a repository backed by the given connection.
func NewPlakaRepository(db *gorm.DB) PlakaRepository {
	return &plakaRepository{db: db}
}

func (r *plakaRepository) Create(ctx context.Context, post *models.PlakaPost) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("create plaka post: %w", err)
	}
	return nil
}

func (r *plakaRepository) GetByID(ctx context.Context, id uint) (*models.PlakaPost, error) {
	var post models.PlakaPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get plaka post %d: %w", id, err)
	}
	return &post, nil
}

func (r *plakaRepository) GetAll(ctx context.Context) ([]models.PlakaPost, error) {
	posts := []models.PlakaPost{}
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list plaka posts: %w", err)
	}
	return posts, nil
}

// Update overwrites the supplied columns and refreshes updated_at. The
// returned count is 0 when the id does not exist; callers treat that as
// not-found.
func (r *plakaRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PlakaPost{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("update plaka post %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes the row and any comments and likes hanging off it. The
// returned count is 0 when the id does not exist.
func (r *plakaRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plaka_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plaka_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.PlakaPost{}, id)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete plaka post %d: %w", id, err)
	}
	return affected, nil
}

// Search filters by an optional free-text query (title, description or
// plate number, case-insensitive substring, OR across the fields) and an
// optional location substring, then orders by creation time. Empty filter
// strings mean "not supplied". sortBy "oldest" sorts ascending; anything
// else, including the empty string, sorts newest first.
func (r *plakaRepository) Search(ctx context.Context, query, location, sortBy string) ([]models.PlakaPost, error) {
	tx := r.db.WithContext(ctx).Model(&models.PlakaPost{})

	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		tx = tx.Where(
			"(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(plate_number) LIKE ?)",
			like, like, like,
		)
	}
	if location != "" {
		tx = tx.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(location)+"%")
	}

	order := "created_at DESC"
	if sortBy == "oldest" {
		order = "created_at ASC"
	}

	posts := []models.PlakaPost{}
	if err := tx.Order(order).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("search plaka posts: %w", err)
	}
	return posts, nil
}
