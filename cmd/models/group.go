package models

import (
	"time"

	"github.com/lib/pq"
)

// Group is a shared, password-gated collection of posts. PostCount is an
// advisory counter: post creation and deletion never touch it.
type Group struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"column:name;size:255;not null" json:"name"`
	Password     string         `gorm:"column:password;size:255;not null" json:"password"`
	ImageUrl     string         `gorm:"column:image_url" json:"imageUrl"`
	IsPublic     bool           `gorm:"column:is_public" json:"isPublic"`
	Introduction string         `gorm:"column:introduction;type:text" json:"introduction"`
	LikeCount    int            `gorm:"column:like_count;default:0" json:"likeCount"`
	Badges       pq.StringArray `gorm:"column:badges;type:text[]" json:"badges"`
	PostCount    int            `gorm:"column:post_count;default:0" json:"postCount"`
	CreatedAt    time.Time      `json:"createdAt"`
}
