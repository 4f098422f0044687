package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/application"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/response"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.UserService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"omitempty,oneof=admin customer"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func userJSON(u *entity.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"role":       u.Role,
		"created_at": u.CreatedAt,
	}
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.Role == "" {
		req.Role = entity.RoleCustomer
	}

	u, token, exp, err := h.Svc.Register(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			response.Fail(c, http.StatusConflict, "user already exists with this email", nil)
		case errors.Is(err, repo.ErrUnavailable):
			response.Fail(c, http.StatusServiceUnavailable, "temporarily unavailable", nil)
		default:
			h.Logger.WithError(err).Error("registration failed")
			response.Fail(c, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user":  userJSON(u),
		"token": token,
	}, "user registered successfully", gin.H{"token_expires_at": exp})
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, token, exp, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			response.Fail(c, http.StatusUnauthorized, "invalid email or password", nil)
		case errors.Is(err, repo.ErrUnavailable):
			response.Fail(c, http.StatusServiceUnavailable, "temporarily unavailable", nil)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Fail(c, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":  userJSON(u),
		"token": token,
	}, "login successful", gin.H{"token_expires_at": exp})
}
