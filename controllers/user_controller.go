package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/commboard/services"
	"github.com/cppla/commboard/utils"
)

// UserController serves public profiles and profile edits.
type UserController struct {
	users *services.UserService
}

// NewUserController creates a UserController.
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// ListUsers returns every user.
func (u *UserController) ListUsers(ctx *gin.Context) {
	users, err := u.users.ListUsers(ctx.Request.Context())
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"users": users})
}

// GetUser returns public user info by ID.
func (u *UserController) GetUser(ctx *gin.Context) {
	user, err := u.users.GetUser(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile allows the authenticated user to update name, bio and avatar.
// Omitted fields keep their value.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Name   *string `json:"name"`
		Bio    *string `json:"bio"`
		Avatar *string `json:"avatar"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	user, err := u.users.UpdateProfile(ctx.Request.Context(), userID, services.ProfileUpdate{
		Name:   req.Name,
		Bio:    req.Bio,
		Avatar: req.Avatar,
	})
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
