package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cppla/commboard/apperrors"
	"github.com/cppla/commboard/store"
	"github.com/cppla/commboard/utils"
)

const maxBioRunes = 500

// ProfileUpdate lists the profile fields to change; nil leaves a field as is.
type ProfileUpdate struct {
	Name   *string
	Bio    *string
	Avatar *string
}

// UserService serves user lookups and profile edits.
type UserService struct {
	store  store.Store
	locks  *utils.KeyedMutex
	logger *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(d Deps) *UserService {
	d = d.withDefaults()
	return &UserService{store: d.Store, locks: d.Locks, logger: d.Logger}
}

// GetUser returns the public view of one user.
func (s *UserService) GetUser(ctx context.Context, id string) (*UserView, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, lookupErr("users.get", err, apperrors.ErrUserNotFound)
	}
	view := ProjectUser(*u)
	return &view, nil
}

// ListUsers returns every user in join order.
func (s *UserService) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.Storage("users.list", err)
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, ProjectUser(u))
	}
	return views, nil
}

// UpdateProfile edits name, bio and avatar of userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*UserView, error) {
	const op = "users.update_profile"
	var name, bio string
	if in.Name != nil {
		if name = utils.CleanText(*in.Name); name == "" {
			return nil, apperrors.Validation(op, "name cannot be empty")
		}
	}
	if in.Bio != nil {
		bio = utils.CleanText(*in.Bio)
		if utf8.RuneCountInString(bio) > maxBioRunes {
			bio = string([]rune(bio)[:maxBioRunes])
		}
	}

	// Same lock as votes and post creation: all of them rewrite the whole user row.
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, lookupErr(op, err, apperrors.ErrUserNotFound)
	}
	if in.Name != nil {
		u.Name = name
	}
	if in.Bio != nil {
		u.Bio = bio
	}
	if in.Avatar != nil {
		u.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if err := s.store.PutUser(ctx, u); err != nil {
		return nil, apperrors.Storage(op, err)
	}

	s.logger.Info("profile updated", zap.String("user_id", userID))
	view := ProjectUser(*u)
	return &view, nil
}
