package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/application"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/interface/middleware"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/helpers"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

// In-memory repositories mirroring the Postgres contracts.

type fakeSweets struct {
	mu    sync.Mutex
	seq   int
	items map[string]*entity.Sweet
	// forcedErr, when set, is returned by every method. Used to drive the
	// unavailable-store answer paths.
	forcedErr error
}

func (f *fakeSweets) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forcedErr = err
}

func newFakeSweets() *fakeSweets {
	return &fakeSweets{items: make(map[string]*entity.Sweet)}
}

func (f *fakeSweets) Create(_ context.Context, s *entity.Sweet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	f.seq++
	s.ID = uuid.NewString()
	s.CreatedAt = time.Unix(0, int64(f.seq)*int64(time.Millisecond))
	s.UpdatedAt = s.CreatedAt
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeSweets) GetByID(_ context.Context, id string) (*entity.Sweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	s, ok := f.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSweets) Update(_ context.Context, id string, upd entity.SweetUpdate) (*entity.Sweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	s, ok := f.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.Category != nil {
		s.Category = *upd.Category
	}
	if upd.Price != nil {
		s.Price = *upd.Price
	}
	if upd.Quantity != nil {
		s.Quantity = *upd.Quantity
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.ImageURL != nil {
		s.ImageURL = *upd.ImageURL
	}
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

func (f *fakeSweets) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	delete(f.items, id)
	return nil
}

func (f *fakeSweets) List(_ context.Context, flt repo.SweetFilter) ([]*entity.Sweet, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, 0, f.forcedErr
	}
	var matched []*entity.Sweet
	for _, s := range f.items {
		if !sweetMatches(s, flt) {
			continue
		}
		cp := *s
		matched = append(matched, &cp)
	}
	if flt.SearchDescription {
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].Name != matched[j].Name {
				return matched[i].Name < matched[j].Name
			}
			return matched[i].ID < matched[j].ID
		})
	} else {
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID < matched[j].ID
		})
	}
	total := len(matched)
	if flt.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[flt.Offset:]
	if flt.Limit > 0 && len(matched) > flt.Limit {
		matched = matched[:flt.Limit]
	}
	return matched, total, nil
}

func sweetMatches(s *entity.Sweet, f repo.SweetFilter) bool {
	if f.Text != "" {
		t := strings.ToLower(f.Text)
		hit := strings.Contains(strings.ToLower(s.Name), t)
		if f.SearchDescription {
			hit = hit || strings.Contains(strings.ToLower(s.Description), t)
		}
		if !hit {
			return false
		}
	}
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && s.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && s.Price > *f.MaxPrice {
		return false
	}
	return true
}

func (f *fakeSweets) DecrementStock(_ context.Context, id string, qty int) (*entity.Sweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	s, ok := f.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if s.Quantity < qty {
		return nil, repo.ErrInsufficientStock
	}
	s.Quantity -= qty
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

func (f *fakeSweets) IncrementStock(_ context.Context, id string, qty int) (*entity.Sweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	s, ok := f.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	s.Quantity += qty
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[string]*entity.User
	byEmail   map[string]*entity.User
	forcedErr error
}

func (f *fakeUsers) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forcedErr = err
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]*entity.User),
	}
}

func (f *fakeUsers) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return repo.ErrDuplicateEmail
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []entity.InventoryEvent
}

func (f *fakeEvents) Record(_ context.Context, ev *entity.InventoryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *ev)
	return nil
}

// fixture wires the handlers through the same route layout as the router
// modules, minus the Redis-backed rate limiters.
type fixture struct {
	router *gin.Engine
	sweets *fakeSweets
	users  *fakeUsers
	events *fakeEvents
	jwt    *helpers.JWTManager
}

func newFixture() *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sweets := newFakeSweets()
	users := newFakeUsers()
	events := &fakeEvents{}
	jwt := helpers.NewJWTManager("test-secret", time.Hour)

	sweetSvc := application.NewSweetService(sweets, events, nil, nil, nil, "", nil, "", logger, 0)
	userSvc := application.NewUserService(users, jwt, logger, 0)

	sweetH := NewSweetHandler(sweetSvc, logger)
	authH := NewAuthHandler(userSvc, logger)

	r := gin.New()
	api := r.Group("/api")

	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)

	api.GET("/sweets", sweetH.List)
	api.GET("/sweets/search", sweetH.Search)

	auth := api.Group("")
	auth.Use(middleware.Auth(users, jwt))
	auth.POST("/sweets/:id/purchase", sweetH.Purchase)

	admin := auth.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/sweets", sweetH.Create)
	admin.PUT("/sweets/:id", sweetH.Update)
	admin.DELETE("/sweets/:id", sweetH.Delete)
	admin.POST("/sweets/:id/restock", sweetH.Restock)
	admin.POST("/sweets/:id/image", sweetH.UploadImage)

	return &fixture{router: r, sweets: sweets, users: users, events: events, jwt: jwt}
}

// addUser seeds a user directly and returns a bearer token for it.
func (fx *fixture) addUser(t *testing.T, email, role string) (*entity.User, string) {
	t.Helper()
	hash, err := helpers.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &entity.User{Email: email, Password: hash, Role: role}
	if err := fx.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := fx.jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return u, token
}

func (fx *fixture) addSweet(t *testing.T, name, category string, price float64, qty int, desc string) *entity.Sweet {
	t.Helper()
	s := &entity.Sweet{Name: name, Category: category, Price: price, Quantity: qty, Description: desc}
	if err := fx.sweets.Create(context.Background(), s); err != nil {
		t.Fatalf("create sweet: %v", err)
	}
	return s
}

func (fx *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func (fx *fixture) get(path string) *httptest.ResponseRecorder {
	return fx.do(http.MethodGet, path, "", "")
}
