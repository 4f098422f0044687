package router

import (
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/application"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/container"
	pginfra "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/infrastructure/postgres"
	handlers "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/interface/http"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/router/modules"
)

// InitModules wires repositories, services and handlers from the container
// singletons and registers every feature module. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	userRepo := pginfra.NewUserRepository(pool)
	sweetRepo := pginfra.NewSweetRepository(pool)
	eventRepo := pginfra.NewEventRepository(pool)

	userSvc := application.NewUserService(userRepo, container.GetJWT(), logger, cfg.StoreTimeout)
	sweetSvc := application.NewSweetService(
		sweetRepo,
		eventRepo,
		container.GetRedis(),
		container.GetRabbitPub(),
		container.GetES(),
		cfg.ESSweetsIndex,
		container.GetGCS(),
		cfg.GCSBucket,
		logger,
		cfg.StoreTimeout,
	)

	authHandler := handlers.NewAuthHandler(userSvc, logger)
	sweetHandler := handlers.NewSweetHandler(sweetSvc, logger)

	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewSweetModule(sweetHandler, userRepo, container.GetJWT()))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
