package models

import "time"

// Comment belongs to a Post by id only; the post's existence is not checked
// at creation time.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"column:post_id;index;not null" json:"postId"`
	Nickname  string    `gorm:"column:nickname;size:255;not null" json:"nickname"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Password  string    `gorm:"column:password;size:255;not null" json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}
