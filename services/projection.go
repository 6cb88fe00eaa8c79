package services

import (
	"time"

	"github.com/cppla/commboard/models"
	"github.com/cppla/commboard/utils"
)

// PostView is the API shape of a post. LikedPosts and DownvotedPosts are the
// post AUTHOR's vote-state sets, not the viewer's; clients derive the viewer's
// own vote by checking membership themselves.
type PostView struct {
	models.Post
	LikedPosts     []string `json:"likedPosts"`
	DownvotedPosts []string `json:"downvotedPosts"`
}

// UserView is the API shape of a user. The password hash is never included.
type UserView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar"`
	JoinDate   time.Time `json:"joinDate"`
	Bio        string    `json:"bio"`
	Posts      []string  `json:"posts"`
	LikedPosts []string  `json:"likedPosts"`
}

// ProjectPost joins post with its author's vote-state sets. author may be nil
// when the author record no longer exists.
func ProjectPost(post models.Post, author *models.User) PostView {
	view := PostView{Post: post, LikedPosts: []string{}, DownvotedPosts: []string{}}
	view.Comments = materializeComments(post.Comments)
	if author != nil {
		view.LikedPosts = append(view.LikedPosts, author.LikedPosts...)
		view.DownvotedPosts = append(view.DownvotedPosts, author.DownvotedPosts...)
	}
	return view
}

// ProjectUser builds the public view of u.
func ProjectUser(u models.User) UserView {
	return UserView{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Avatar:     u.Avatar,
		JoinDate:   u.JoinDate,
		Bio:        u.Bio,
		Posts:      append([]string{}, utils.NonNilIDs(u.Posts)...),
		LikedPosts: append([]string{}, utils.NonNilIDs(u.LikedPosts)...),
	}
}

func materializeComments(cs []models.Comment) []models.Comment {
	out := make([]models.Comment, len(cs))
	copy(out, cs)
	return out
}
