package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/helpers"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password,
// so login failures do not leak which accounts exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService struct {
	Repo    repo.UserRepository
	JWT     *helpers.JWTManager
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewUserService(r repo.UserRepository, jwt *helpers.JWTManager, logger *logrus.Logger, timeout time.Duration) *UserService {
	return &UserService{Repo: r, JWT: jwt, Logger: logger, Timeout: timeout}
}

func (s *UserService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// Register creates a user and issues a token. The role defaults to
// customer upstream; the password is stored only as a bcrypt hash.
func (s *UserService) Register(ctx context.Context, email, password, role string) (*entity.User, string, time.Time, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	u := &entity.User{Email: email, Password: hash, Role: role}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.Repo.Create(opCtx, u); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.JWT.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("token generation failed")
		}
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

// Login validates credentials and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, string, time.Time, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	u, err := s.Repo.GetByEmail(opCtx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, exp, err := s.JWT.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("token generation failed")
		}
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}
