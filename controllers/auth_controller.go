package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/commboard/middleware"
	"github.com/cppla/commboard/services"
	"github.com/cppla/commboard/utils"
)

// AuthController handles registration, login and session endpoints.
type AuthController struct {
	auth  *services.AuthService
	users *services.UserService
}

// NewAuthController creates an AuthController.
func NewAuthController(auth *services.AuthService, users *services.UserService) *AuthController {
	return &AuthController{auth: auth, users: users}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	sess, err := a.auth.Register(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Created(ctx, sess)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	sess, err := a.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, sess)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if err := a.auth.Logout(ctx.Request.Context(), token); err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	user, err := a.users.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
