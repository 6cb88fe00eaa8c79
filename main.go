package main

import (
	"time"

	"github.com/cppla/commboard/config"
	"github.com/cppla/commboard/routes"
	"github.com/cppla/commboard/services"
	"github.com/cppla/commboard/store"
	"github.com/cppla/commboard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db, err := config.InitDatabase(cfg, store.Models()...)
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	rc := utils.NewRedisClient(cfg)
	if rc != nil {
		defer rc.Close()
	}

	files, err := utils.NewLocalStorage(cfg.UploadDir, int64(cfg.UploadMaxMB)<<20)
	if err != nil {
		utils.Sugar.Fatalf("upload storage init failed: %v", err)
	}

	deps := services.Deps{
		Store:     store.NewGormStore(db),
		Cache:     utils.NewCache(rc),
		Files:     files,
		Tokens:    utils.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour),
		Blacklist: utils.NewTokenBlacklist(rc),
		Locks:     utils.NewKeyedMutex(),
		Logger:    utils.Logger,
	}

	r := routes.SetupRouter(cfg, routes.Deps{
		Auth:      services.NewAuthService(deps),
		Users:     services.NewUserService(deps),
		Posts:     services.NewPostService(deps),
		UploadDir: files.Root(),
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
