// Package store persists users, posts and comments through gorm.
//
// Each method is atomic on its own. Callers that need several writes to land
// together run them inside Transaction.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/commboard/models"
)

var (
	// ErrRecordNotFound is returned by lookups that match no row.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique column (users.email) already holds the value.
	ErrDuplicate = errors.New("duplicate record")
)

// Stats aggregates forum-wide counters.
type Stats struct {
	UserCount     int64 `json:"userCount"`
	PostCount     int64 `json:"postCount"`
	CommentCount  int64 `json:"commentCount"`
	UpvoteTotal   int64 `json:"upvoteTotal"`
	DownvoteTotal int64 `json:"downvoteTotal"`
}

// Store is the record store consumed by the services layer.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	PutUser(ctx context.Context, u *models.User) error

	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, p *models.Post) error
	PutPost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id string) error

	AppendComment(ctx context.Context, c *models.Comment) error

	Stats(ctx context.Context) (Stats, error)

	// Transaction runs fn against a Store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// Models lists the tables the store needs, for auto-migration.
func Models() []interface{} {
	return []interface{}{&models.User{}, &models.Post{}, &models.Comment{}}
}

// GormStore implements Store on top of *gorm.DB.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("join_date ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) PutUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error)
}

// GetPost loads a post with its comments in arrival order.
func (s *GormStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	err := s.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListPosts returns every post, newest first, with comments preloaded.
func (s *GormStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) CreatePost(ctx context.Context, p *models.Post) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

// PutPost saves the post's own columns; comments are only ever appended through AppendComment.
func (s *GormStore) PutPost(ctx context.Context, p *models.Post) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error)
}

// DeletePost removes the post and its comments.
func (s *GormStore) DeletePost(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
}

// AppendComment inserts c; the auto-increment Seq places it after every earlier comment.
func (s *GormStore) AppendComment(ctx context.Context, c *models.Comment) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&st.UserCount).Error; err != nil {
		return st, err
	}
	if err := db.Model(&models.Post{}).Count(&st.PostCount).Error; err != nil {
		return st, err
	}
	if err := db.Model(&models.Comment{}).Count(&st.CommentCount).Error; err != nil {
		return st, err
	}
	var sums struct {
		Up   int64
		Down int64
	}
	if err := db.Model(&models.Post{}).
		Select("COALESCE(SUM(upvotes),0) AS up, COALESCE(SUM(downvotes),0) AS down").
		Scan(&sums).Error; err != nil {
		return st, err
	}
	st.UpvoteTotal = sums.Up
	st.DownvoteTotal = sums.Down
	return st, nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
