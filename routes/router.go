package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/commboard/config"
	"github.com/cppla/commboard/controllers"
	"github.com/cppla/commboard/middleware"
	"github.com/cppla/commboard/services"
	"github.com/cppla/commboard/utils"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Auth  *services.AuthService
	Users *services.UserService
	Posts *services.PostService
	// UploadDir is served under /uploads; empty disables the static route.
	UploadDir string
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, d Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file when configured.
	gl := utils.Logger
	if cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if d.UploadDir != "" {
		r.Static(strings.TrimSuffix(utils.UploadURLPrefix, "/"), d.UploadDir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(d.Auth, d.Users)
	userController := controllers.NewUserController(d.Users)
	postController := controllers.NewPostController(d.Posts)
	statsController := controllers.NewStatsController(d.Posts)

	authRequired := middleware.AuthRequired(d.Auth)
	limited := middleware.RateLimit(cfg.RateLimitPerMinute)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", limited, authController.Register)
	authGroup.POST("/login", limited, authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)

	api.GET("/users", userController.ListUsers)
	api.GET("/users/:id", userController.GetUser)
	api.PUT("/users/profile", authRequired, limited, userController.UpdateProfile)

	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)

	protected := api.Group("/posts")
	protected.Use(authRequired, limited)
	protected.POST("", postController.CreatePost)
	protected.PUT("/:id", postController.UpdatePost)
	protected.DELETE("/:id", postController.DeletePost)
	protected.PUT("/:id/upvote", postController.Upvote)
	protected.PUT("/:id/downvote", postController.Downvote)
	protected.POST("/:id/comments", postController.CreateComment)

	api.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
