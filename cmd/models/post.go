package models

import (
	"time"

	"github.com/lib/pq"
)

// Post belongs to a Group by id only. There is deliberately no foreign key
// constraint: post creation validates the identifier, not the group's
// existence, and GroupPassword is captured at creation without being checked
// against the live group password. CommentCount is advisory and never
// updated by comment operations.
type Post struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	GroupID       uint           `gorm:"column:group_id;index;not null" json:"groupId"`
	Nickname      string         `gorm:"column:nickname;size:255;not null" json:"nickname"`
	Title         string         `gorm:"column:title;size:255;not null" json:"title"`
	Content       string         `gorm:"column:content;type:text;not null" json:"content"`
	PostPassword  string         `gorm:"column:post_password;size:255;not null" json:"postPassword"`
	GroupPassword string         `gorm:"column:group_password;size:255;not null" json:"groupPassword"`
	ImageUrl      string         `gorm:"column:image_url" json:"imageUrl"`
	Tags          pq.StringArray `gorm:"column:tags;type:text[]" json:"tags"`
	Location      string         `gorm:"column:location;size:255" json:"location"`
	Moment        time.Time      `gorm:"column:moment" json:"moment"`
	IsPublic      bool           `gorm:"column:is_public" json:"isPublic"`
	LikeCount     int            `gorm:"column:like_count;default:0" json:"likeCount"`
	CommentCount  int            `gorm:"column:comment_count;default:0" json:"commentCount"`
	CreatedAt     time.Time      `json:"createdAt"`
}
