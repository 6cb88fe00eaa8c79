package models

import "time"

// Comment is an immutable reply appended to a post. Seq fixes arrival order;
// AuthorName is a snapshot taken when the comment was written.
type Comment struct {
	Seq        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ID         string    `gorm:"size:64;uniqueIndex;not null" json:"id"`
	PostID     string    `gorm:"size:64;index;not null" json:"-"`
	AuthorID   string    `gorm:"size:64;not null" json:"authorId"`
	AuthorName string    `gorm:"size:128" json:"authorName"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}
