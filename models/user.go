package models

import "time"

// User is a registered member. Posts keeps authoring order; LikedPosts and
// DownvotedPosts are disjoint sets of post ids maintained by the vote reconciler.
type User struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Name           string    `gorm:"size:128;not null" json:"name"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"size:255" json:"-"`
	Avatar         string    `gorm:"size:512" json:"avatar"`
	JoinDate       time.Time `json:"joinDate"`
	Bio            string    `gorm:"type:text" json:"bio"`
	Posts          []string  `gorm:"serializer:json;type:text" json:"posts"`
	LikedPosts     []string  `gorm:"serializer:json;type:text" json:"likedPosts"`
	DownvotedPosts []string  `gorm:"serializer:json;type:text" json:"downvotedPosts"`
	UpdatedAt      time.Time `json:"-"`
}
