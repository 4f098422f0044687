package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/container"
	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
	handlers "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/interface/http"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/interface/middleware"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/helpers"
)

// SweetModule wires the catalog routes.
// Public: GET /api/sweets, GET /api/sweets/search
// Authenticated: POST /api/sweets/:id/purchase
// Admin: POST /api/sweets, PUT/DELETE /api/sweets/:id,
//
//	POST /api/sweets/:id/restock, POST /api/sweets/:id/image
type SweetModule struct {
	Handler *handlers.SweetHandler
	Users   repo.UserRepository
	JWT     *helpers.JWTManager
}

func NewSweetModule(h *handlers.SweetHandler, users repo.UserRepository, jwt *helpers.JWTManager) *SweetModule {
	return &SweetModule{Handler: h, Users: users, JWT: jwt}
}

func (m *SweetModule) Register(rg *gin.RouterGroup) {
	rg.GET("/sweets", m.Handler.List)
	rg.GET("/sweets/search", m.Handler.Search)

	auth := rg.Group("")
	auth.Use(middleware.Auth(m.Users, m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUser(), middleware.AllowPrivateIP()))
	{
		auth.POST("/sweets/:id/purchase", m.Handler.Purchase)

		admin := auth.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/sweets", m.Handler.Create)
			admin.PUT("/sweets/:id", m.Handler.Update)
			admin.DELETE("/sweets/:id", m.Handler.Delete)
			admin.POST("/sweets/:id/restock", m.Handler.Restock)
			admin.POST("/sweets/:id/image", m.Handler.UploadImage)
		}
	}
}
