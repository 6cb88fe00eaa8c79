package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/commboard/middleware"
	"github.com/cppla/commboard/models"
	"github.com/cppla/commboard/services"
	"github.com/cppla/commboard/utils"
)

// PostController exposes posts, votes and comments.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

type postRequest struct {
	Title       string `json:"title" form:"title"`
	Content     string `json:"content" form:"content"`
	Type        string `json:"type" form:"type"`
	RemoveImage bool   `json:"removeImage" form:"removeImage"`
}

// bindPost reads a post from JSON or multipart form. Images are accepted only
// as a multipart "image" file, which the service stores.
func bindPost(ctx *gin.Context) (in services.PostInput, ok bool) {
	var req postRequest
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		if err := ctx.ShouldBind(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
			return in, false
		}
		if fh, err := ctx.FormFile("image"); err == nil {
			in.Upload = fh
		}
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return in, false
	}

	in.Title = req.Title
	in.Content = req.Content
	in.Type = models.PostType(strings.TrimSpace(req.Type))
	in.RemoveImage = req.RemoveImage
	return in, true
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	in, ok := bindPost(ctx)
	if !ok {
		return
	}

	post, err := p.posts.CreatePost(ctx.Request.Context(), userID, in)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"post": post})
}

// UpdatePost edits a post owned by the caller.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	in, ok := bindPost(ctx)
	if !ok {
		return
	}

	post, err := p.posts.UpdatePost(ctx.Request.Context(), ctx.Param("id"), userID, in)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post owned by the caller.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	if err := p.posts.DeletePost(ctx.Request.Context(), ctx.Param("id"), userID); err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "Post deleted"})
}

// ListPosts returns every post, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.posts.ListPosts(ctx.Request.Context())
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"posts": posts})
}

// GetPost returns a single post with its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

func (p *PostController) Upvote(ctx *gin.Context) {
	p.vote(ctx, services.VoteUp)
}

func (p *PostController) Downvote(ctx *gin.Context) {
	p.vote(ctx, services.VoteDown)
}

func (p *PostController) vote(ctx *gin.Context, dir services.VoteDirection) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	post, err := p.posts.Vote(ctx.Request.Context(), ctx.Param("id"), userID, dir)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// CreateComment appends a comment to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}

	comment, err := p.posts.AddComment(ctx.Request.Context(), ctx.Param("id"), userID, req.Content)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"comment": comment})
}

// getUserID reads the authenticated user id, answering 401 when absent.
func getUserID(ctx *gin.Context) (string, bool) {
	id, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}
