package services

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/commboard/apperrors"
	"github.com/cppla/commboard/models"
	"github.com/cppla/commboard/store"
	"github.com/cppla/commboard/utils"
)

// PostInput carries the author-editable fields of a post.
type PostInput struct {
	Title   string
	Content string
	Type    models.PostType
	// Upload is stored and becomes the post image, replacing any current one.
	Upload *multipart.FileHeader
	// RemoveImage clears the current image on update when Upload is nil.
	RemoveImage bool
}

// PostService implements posts, votes and comments.
type PostService struct {
	store  store.Store
	cache  *postCache
	files  utils.FileStorage
	locks  *utils.KeyedMutex
	logger *zap.Logger
	now    clock
}

// NewPostService creates a PostService.
func NewPostService(d Deps) *PostService {
	d = d.withDefaults()
	return &PostService{
		store:  d.Store,
		cache:  newPostCache(d.Cache),
		files:  d.Files,
		locks:  d.Locks,
		logger: d.Logger,
		now:    time.Now,
	}
}

func (s *PostService) validate(op string, in PostInput) (PostInput, error) {
	in.Title = utils.CleanText(in.Title)
	in.Content = utils.CleanText(in.Content)
	if in.Title == "" || in.Content == "" || in.Type == "" {
		return in, apperrors.Validation(op, "title, content and type are required")
	}
	if !in.Type.Valid() {
		return in, apperrors.Validation(op, "type must be one of Issue, Announcement, Progress")
	}
	return in, nil
}

// CreatePost stores a new post for authorID and appends it to the author's posts.
func (s *PostService) CreatePost(ctx context.Context, authorID string, in PostInput) (*models.Post, error) {
	const op = "posts.create"
	in, err := s.validate(op, in)
	if err != nil {
		return nil, err
	}

	image, err := s.storeUpload(op, in.Upload)
	if err != nil {
		return nil, err
	}
	post := &models.Post{
		ID:        newID(),
		Title:     in.Title,
		Content:   in.Content,
		Type:      in.Type,
		Image:     image,
		AuthorID:  authorID,
		CreatedAt: s.now(),
		Comments:  []models.Comment{},
	}

	unlock := s.locks.Lock(userKey(authorID))
	defer unlock()

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		author, err := tx.GetUser(ctx, authorID)
		if err != nil {
			return lookupErr(op, err, apperrors.ErrUserNotFound)
		}
		if err := tx.CreatePost(ctx, post); err != nil {
			return apperrors.Storage(op, err)
		}
		author.Posts = utils.AddID(author.Posts, post.ID)
		if err := tx.PutUser(ctx, author); err != nil {
			return apperrors.Storage(op, err)
		}
		return nil
	})
	if err != nil {
		s.deleteImageAsync(image)
		return nil, storageErr(op, err)
	}

	s.cache.invalidate(ctx, cacheKeyPostList)
	s.logger.Info("post created", zap.String("post_id", post.ID), zap.String("author_id", authorID))
	return post, nil
}

// UpdatePost rewrites title, content, type and optionally the image. Author only.
func (s *PostService) UpdatePost(ctx context.Context, postID, requesterID string, in PostInput) (*models.Post, error) {
	const op = "posts.update"

	unlock := s.locks.Lock(postKey(postID))
	defer unlock()

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, lookupErr(op, err, apperrors.ErrPostNotFound)
	}
	if post.AuthorID != requesterID {
		return nil, apperrors.Forbidden(op, "not authorized to update this post")
	}
	if in, err = s.validate(op, in); err != nil {
		return nil, err
	}
	image, err := s.storeUpload(op, in.Upload)
	if err != nil {
		return nil, err
	}

	oldImage := post.Image
	post.Title = in.Title
	post.Content = in.Content
	post.Type = in.Type
	switch {
	case image != "":
		post.Image = image
	case in.RemoveImage:
		post.Image = ""
	}
	if err := s.store.PutPost(ctx, post); err != nil {
		s.deleteImageAsync(image)
		return nil, apperrors.Storage(op, err)
	}

	if oldImage != "" && oldImage != post.Image {
		s.deleteImageAsync(oldImage)
	}
	s.cache.invalidate(ctx, cacheKeyPostList, cacheKeyPostDetail+postID)
	return s.reload(ctx, op, postID)
}

// DeletePost removes a post owned by requesterID, drops it from the author's
// posts and deletes its image in the background.
func (s *PostService) DeletePost(ctx context.Context, postID, requesterID string) error {
	const op = "posts.delete"

	unlock := s.locks.Lock(postKey(postID), userKey(requesterID))
	defer unlock()

	var image string
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return lookupErr(op, err, apperrors.ErrPostNotFound)
		}
		if post.AuthorID != requesterID {
			return apperrors.Forbidden(op, "not authorized to delete this post")
		}
		image = post.Image
		if err := tx.DeletePost(ctx, postID); err != nil {
			return lookupErr(op, err, apperrors.ErrPostNotFound)
		}

		author, err := tx.GetUser(ctx, post.AuthorID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return apperrors.Storage(op, err)
		}
		author.Posts = utils.RemoveID(author.Posts, postID)
		if err := tx.PutUser(ctx, author); err != nil {
			return apperrors.Storage(op, err)
		}
		return nil
	})
	if err != nil {
		return storageErr(op, err)
	}

	s.deleteImageAsync(image)
	s.cache.invalidate(ctx, cacheKeyPostList, cacheKeyPostDetail+postID)
	s.logger.Info("post deleted", zap.String("post_id", postID), zap.String("author_id", requesterID))
	return nil
}

// storeUpload saves fh and returns its public URL, or "" when fh is nil.
// Post images only ever come from here, so deleting one never reaches a
// file another post owns.
func (s *PostService) storeUpload(op string, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", nil
	}
	if s.files == nil {
		return "", apperrors.Validation(op, "image uploads are disabled")
	}
	url, err := s.files.Save(fh)
	if errors.Is(err, utils.ErrFileTooLarge) {
		return "", apperrors.TooLarge(op, "image too large")
	}
	if err != nil {
		return "", apperrors.Storage(op, err)
	}
	return url, nil
}

// deleteImageAsync removes an image without blocking or failing the caller.
func (s *PostService) deleteImageAsync(url string) {
	if s.files == nil || url == "" {
		return
	}
	go func() {
		if err := s.files.Delete(url); err != nil {
			s.logger.Warn("image delete failed", zap.String("image", url), zap.Error(err))
		}
	}()
}

// Upvote applies an upvote by userID on postID and returns the refreshed post.
func (s *PostService) Upvote(ctx context.Context, postID, userID string) (*models.Post, error) {
	return s.Vote(ctx, postID, userID, VoteUp)
}

// Downvote applies a downvote by userID on postID and returns the refreshed post.
func (s *PostService) Downvote(ctx context.Context, postID, userID string) (*models.Post, error) {
	return s.Vote(ctx, postID, userID, VoteDown)
}

// Vote reads the post counters and the voter's sets, reconciles them and
// writes both back. Requests touching the same post or the same user are
// serialized, and both writes commit in one transaction.
func (s *PostService) Vote(ctx context.Context, postID, userID string, dir VoteDirection) (*models.Post, error) {
	op := "posts.upvote"
	if dir == VoteDown {
		op = "posts.downvote"
	} else if dir != VoteUp {
		return nil, apperrors.Validation("posts.vote", "vote direction must be up or down")
	}

	unlock := s.locks.Lock(postKey(postID), userKey(userID))
	defer unlock()

	var voterPosts []string
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return lookupErr(op, err, apperrors.ErrPostNotFound)
		}
		voter, err := tx.GetUser(ctx, userID)
		if err != nil {
			return lookupErr(op, err, apperrors.ErrUserNotFound)
		}

		next := reconcile(ledger{
			upvotes:   post.Upvotes,
			downvotes: post.Downvotes,
			liked:     voter.LikedPosts,
			downvoted: voter.DownvotedPosts,
		}, postID, dir)

		post.Upvotes, post.Downvotes = next.upvotes, next.downvotes
		if err := tx.PutPost(ctx, post); err != nil {
			return apperrors.Storage(op, err)
		}
		voter.LikedPosts, voter.DownvotedPosts = next.liked, next.downvoted
		if err := tx.PutUser(ctx, voter); err != nil {
			return apperrors.Storage(op, err)
		}
		voterPosts = voter.Posts
		return nil
	})
	if err != nil {
		return nil, storageErr(op, err)
	}

	// The voter's sets travel with every post the voter authored.
	keys := []string{cacheKeyPostList, cacheKeyPostDetail + postID}
	for _, id := range voterPosts {
		keys = append(keys, cacheKeyPostDetail+id)
	}
	s.cache.invalidate(ctx, keys...)

	s.logger.Debug("vote applied", zap.String("post_id", postID), zap.String("user_id", userID), zap.String("direction", string(dir)))
	return s.reload(ctx, op, postID)
}

// AddComment appends a comment by userID to postID.
func (s *PostService) AddComment(ctx context.Context, postID, userID, content string) (*models.Comment, error) {
	const op = "posts.comment"
	content = utils.CleanText(content)
	if content == "" {
		return nil, apperrors.Validation(op, "comment content cannot be empty")
	}

	// Held so a concurrent delete cannot leave the comment orphaned.
	unlock := s.locks.Lock(postKey(postID))
	defer unlock()

	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, lookupErr(op, err, apperrors.ErrPostNotFound)
	}
	author, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, lookupErr(op, err, apperrors.ErrUserNotFound)
	}

	comment := &models.Comment{
		ID:         newID(),
		PostID:     postID,
		AuthorID:   userID,
		AuthorName: author.Name,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.store.AppendComment(ctx, comment); err != nil {
		return nil, apperrors.Storage(op, err)
	}

	s.cache.invalidate(ctx, cacheKeyPostList, cacheKeyPostDetail+postID)
	return comment, nil
}

// GetPost returns the projection of one post.
func (s *PostService) GetPost(ctx context.Context, postID string) (*PostView, error) {
	const op = "posts.get"
	var cached PostView
	if s.cache.get(ctx, cacheKeyPostDetail+postID, &cached) {
		return &cached, nil
	}

	gen := s.cache.generation()
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, lookupErr(op, err, apperrors.ErrPostNotFound)
	}
	author, err := s.author(ctx, post.AuthorID)
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	view := ProjectPost(*post, author)
	s.cache.fill(ctx, gen, cacheKeyPostDetail+postID, view)
	return &view, nil
}

// ListPosts returns every post, newest first, projected with its author's sets.
func (s *PostService) ListPosts(ctx context.Context) ([]PostView, error) {
	const op = "posts.list"
	var cached []PostView
	if s.cache.get(ctx, cacheKeyPostList, &cached) {
		return cached, nil
	}

	gen := s.cache.generation()
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	authors := map[string]*models.User{}
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			if author, err = s.author(ctx, p.AuthorID); err != nil {
				return nil, apperrors.Storage(op, err)
			}
			authors[p.AuthorID] = author
		}
		views = append(views, ProjectPost(p, author))
	}
	s.cache.fill(ctx, gen, cacheKeyPostList, views)
	return views, nil
}

// Stats returns forum-wide counters.
func (s *PostService) Stats(ctx context.Context) (store.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return st, apperrors.Storage("posts.stats", err)
	}
	return st, nil
}

// author loads a post author; a dangling author id yields nil, nil.
func (s *PostService) author(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil
	}
	return u, err
}

func (s *PostService) reload(ctx context.Context, op, postID string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, lookupErr(op, err, apperrors.ErrPostNotFound)
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	return post, nil
}
