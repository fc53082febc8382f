package models

import "time"

// PlakaPost represents a single found-plate report.
type PlakaPost struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	ImageURL    string    `gorm:"not null" json:"image_url"`
	Location    string    `gorm:"index" json:"location"`
	PlateNumber string    `gorm:"index" json:"plate_number"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PlakaPost) TableName() string { return "plaka_posts" }

// Comment is a remark left on a PlakaPost. There is no public route for
// comments yet; the table stays in the schema and rows are removed together
// with their post.
type Comment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	PlakaID     uint      `gorm:"not null;index" json:"plaka_id"`
	CommentText string    `gorm:"not null" json:"comment_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Like marks appreciation for a PlakaPost. Same status as Comment.
type Like struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	PlakaID   uint      `gorm:"not null;index" json:"plaka_id"`
	CreatedAt time.Time `json:"created_at"`
}
