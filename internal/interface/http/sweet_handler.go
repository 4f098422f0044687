package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/application"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/interface/middleware"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/response"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/validation"
)

const (
	defaultLimit  = 20
	maxImageBytes = 5 << 20
)

type SweetHandler struct {
	Svc    *application.SweetService
	Logger *logrus.Logger
}

func NewSweetHandler(svc *application.SweetService, logger *logrus.Logger) *SweetHandler {
	return &SweetHandler{Svc: svc, Logger: logger}
}

type createSweetRequest struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Quantity    *int     `json:"quantity" binding:"required,gte=0"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url" binding:"omitempty,url"`
}

type updateSweetRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	Category    *string  `json:"category" binding:"omitempty,min=1"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Quantity    *int     `json:"quantity" binding:"omitempty,gte=0"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,url"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

type listQuery struct {
	Search   string   `form:"search"`
	Category string   `form:"category"`
	MinPrice *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	Limit    *int     `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Offset   *int     `form:"offset" binding:"omitempty,gte=0"`
}

type searchQuery struct {
	Q        string   `form:"q"`
	Category string   `form:"category"`
	MinPrice *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
}

// storeError maps repository sentinels onto the HTTP taxonomy. Unexpected
// errors are logged in full and answered with a generic message.
func (h *SweetHandler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		response.Fail(c, http.StatusNotFound, "sweet not found", nil)
	case errors.Is(err, repo.ErrInsufficientStock):
		response.Fail(c, http.StatusBadRequest, "insufficient quantity in stock", nil)
	case errors.Is(err, repo.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, "temporarily unavailable", nil)
	default:
		h.Logger.WithError(err).Error("sweet operation failed")
		response.Fail(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// List GET /api/sweets
func (h *SweetHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid filter", validation.ToDetails(err))
		return
	}

	f := repo.SweetFilter{
		Text:     q.Search,
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Limit:    defaultLimit,
	}
	if q.Limit != nil {
		f.Limit = *q.Limit
	}
	if q.Offset != nil {
		f.Offset = *q.Offset
	}

	sweets, total, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"items":  sweets,
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
	}, "sweets", nil)
}

// Search GET /api/sweets/search
func (h *SweetHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid filter", validation.ToDetails(err))
		return
	}

	f := repo.SweetFilter{
		Text:     q.Q,
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	}
	sweets, err := h.Svc.Search(c.Request.Context(), f)
	if err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": sweets,
		"query": gin.H{
			"search":   q.Q,
			"category": q.Category,
			"minPrice": q.MinPrice,
			"maxPrice": q.MaxPrice,
		},
	}, "search results", nil)
}

// Create POST /api/sweets (admin)
func (h *SweetHandler) Create(c *gin.Context) {
	var req createSweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	sweet, err := h.Svc.Create(c.Request.Context(), application.CreateSweetInput{
		Name:        req.Name,
		Category:    req.Category,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"sweet": sweet}, "sweet created successfully", nil)
}

// Update PUT /api/sweets/:id (admin)
func (h *SweetHandler) Update(c *gin.Context) {
	var req updateSweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	sweet, err := h.Svc.Update(c.Request.Context(), c.Param("id"), entity.SweetUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sweet": sweet}, "sweet updated successfully", nil)
}

// Delete DELETE /api/sweets/:id (admin). Deleting an absent id still
// reports success; the end state is the same either way.
func (h *SweetHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "sweet deleted successfully", nil)
}

// Purchase POST /api/sweets/:id/purchase (authenticated)
func (h *SweetHandler) Purchase(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	buyer := middleware.UserFrom(c)
	if buyer == nil {
		response.Fail(c, http.StatusUnauthorized, "access token required", nil)
		return
	}

	receipt, sweet, err := h.Svc.Purchase(c.Request.Context(), c.Param("id"), req.Quantity, buyer, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"purchase": receipt,
		"sweet":    sweet,
	}, "purchase successful", nil)
}

// Restock POST /api/sweets/:id/restock (admin)
func (h *SweetHandler) Restock(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	admin := middleware.UserFrom(c)
	if admin == nil {
		response.Fail(c, http.StatusUnauthorized, "access token required", nil)
		return
	}

	receipt, sweet, err := h.Svc.Restock(c.Request.Context(), c.Param("id"), req.Quantity, admin, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"restock": receipt,
		"sweet":   sweet,
	}, "restock successful", nil)
}

// UploadImage POST /api/sweets/:id/image (admin, multipart)
func (h *SweetHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "image file required", nil)
		return
	}
	if file.Size > maxImageBytes {
		response.Fail(c, http.StatusBadRequest, "image too large", nil)
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "unreadable image file", nil)
		return
	}
	defer func() { _ = src.Close() }()

	sweet, err := h.Svc.UploadImage(c.Request.Context(), c.Param("id"), src, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, application.ErrImagesNotConfigured) {
			response.Fail(c, http.StatusServiceUnavailable, "image storage not configured", nil)
			return
		}
		h.storeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sweet": sweet}, "image uploaded", nil)
}
