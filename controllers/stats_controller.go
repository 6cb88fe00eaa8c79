package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/commboard/services"
	"github.com/cppla/commboard/utils"
)

// StatsController provides board statistics.
type StatsController struct {
	posts *services.PostService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(posts *services.PostService) *StatsController {
	return &StatsController{posts: posts}
}

// GetStats returns user, post and comment counts and vote totals.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st, err := s.posts.Stats(ctx.Request.Context())
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, st)
}
