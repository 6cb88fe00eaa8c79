package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/commboard/apperrors"
	"github.com/cppla/commboard/models"
	"github.com/cppla/commboard/store"
	"github.com/cppla/commboard/utils"
)

// bcrypt only hashes the first 72 bytes and rejects anything longer.
const maxPasswordBytes = 72

// AuthService registers accounts and issues, verifies and revokes tokens.
type AuthService struct {
	store     store.Store
	tokens    *utils.TokenManager
	blacklist *utils.TokenBlacklist
	logger    *zap.Logger
	now       clock
}

// NewAuthService creates an AuthService. d.Tokens is required.
func NewAuthService(d Deps) *AuthService {
	d = d.withDefaults()
	return &AuthService{
		store:     d.Store,
		tokens:    d.Tokens,
		blacklist: d.Blacklist,
		logger:    d.Logger,
		now:       time.Now,
	}
}

// Session is the result of a successful register or login.
type Session struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

// Register creates a user with a hashed password and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	const op = "auth.register"
	name = utils.CleanText(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, apperrors.Validation(op, "Please enter all fields")
	}
	if len(password) > maxPasswordBytes {
		return nil, apperrors.Validation(op, "password must be at most 72 bytes")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict(op, apperrors.ErrEmailExists)
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, apperrors.Storage(op, err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	now := s.now()
	user := &models.User{
		ID:             newID(),
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		Avatar:         fmt.Sprintf("https://picsum.photos/200/200?random=%d", now.UnixNano()),
		JoinDate:       now,
		Posts:          []string{},
		LikedPosts:     []string{},
		DownvotedPosts: []string{},
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict(op, apperrors.ErrEmailExists)
		}
		return nil, apperrors.Storage(op, err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.session(op, user)
}

// Login checks email and password. Every failure reads as invalid credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.login"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.Validation(op, "Please enter all fields")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized(op, apperrors.ErrInvalidCredentials)
		}
		return nil, apperrors.Storage(op, err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, apperrors.Unauthorized(op, apperrors.ErrInvalidCredentials)
	}
	return s.session(op, user)
}

// Logout revokes token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return apperrors.Unauthorized("auth.logout", err)
	}
	expiresAt := s.now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	s.blacklist.Revoke(ctx, token, expiresAt)
	return nil
}

// Authenticate resolves a bearer token to a user id. It does not check that
// the user still exists; operations report that themselves.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	const op = "auth.authenticate"
	if token == "" {
		return "", apperrors.Unauthorized(op, errors.New("no token, authorization denied"))
	}
	if s.blacklist.IsRevoked(ctx, token) {
		return "", apperrors.Unauthorized(op, errors.New("token has been revoked"))
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return "", apperrors.Unauthorized(op, errors.New("token is not valid"))
	}
	return claims.UserID, nil
}

func (s *AuthService) session(op string, user *models.User) (*Session, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: generate token: %w", op, err)
	}
	return &Session{User: ProjectUser(*user), Token: token}, nil
}
