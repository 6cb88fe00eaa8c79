// Package services holds the application logic behind the HTTP controllers:
// post lifecycle, the vote ledger, comments, projections and accounts.
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/commboard/apperrors"
	"github.com/cppla/commboard/store"
	"github.com/cppla/commboard/utils"
)

// Deps are the collaborators shared by every service. Locks must be the same
// instance across services because they all write user records.
type Deps struct {
	Store     store.Store
	Cache     utils.Cache
	Files     utils.FileStorage
	Tokens    *utils.TokenManager
	Blacklist *utils.TokenBlacklist
	Locks     *utils.KeyedMutex
	Logger    *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = utils.NopCache{}
	}
	if d.Locks == nil {
		d.Locks = utils.NewKeyedMutex()
	}
	if d.Logger == nil {
		d.Logger = utils.Logger
	}
	if d.Blacklist == nil {
		d.Blacklist = utils.NewTokenBlacklist(nil)
	}
	return d
}

const (
	cacheKeyPostList   = "cache:posts:list"
	cacheKeyPostDetail = "cache:post:detail:"
)

func postKey(id string) string { return "post:" + id }
func userKey(id string) string { return "user:" + id }

func newID() string { return uuid.NewString() }

// lookupErr converts a store lookup failure into NotFound(cause) or Storage.
func lookupErr(op string, err error, cause error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return apperrors.NotFound(op, cause)
	}
	return apperrors.Storage(op, err)
}

// storageErr passes application errors through and wraps anything else as Storage.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	return apperrors.Storage(op, err)
}

type clock func() time.Time
