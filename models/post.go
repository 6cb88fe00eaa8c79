package models

import "time"

// PostType classifies a post.
type PostType string

const (
	PostTypeIssue        PostType = "Issue"
	PostTypeAnnouncement PostType = "Announcement"
	PostTypeProgress     PostType = "Progress"
)

// Valid reports whether t is one of the known post kinds.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeIssue, PostTypeAnnouncement, PostTypeProgress:
		return true
	}
	return false
}

// Post represents a community post. Upvotes and Downvotes mirror the number of
// users holding the post id in their liked / downvoted sets.
type Post struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Type      PostType  `gorm:"size:32;not null" json:"type"`
	AuthorID  string    `gorm:"size:64;index;not null" json:"authorId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	Image     string    `gorm:"size:1024" json:"image"`
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0" json:"downvotes"`
	Comments  []Comment `gorm:"foreignKey:PostID;references:ID" json:"comments"`
	UpdatedAt time.Time `json:"-"`
}
