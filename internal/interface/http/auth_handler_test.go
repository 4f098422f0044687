package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
)

func TestRegister(t *testing.T) {
	fx := newFixture()

	w := fx.do(http.MethodPost, "/api/auth/register", `{"email":"alice@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	user := data["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "customer", user["role"], "role defaults to customer")
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotEmpty(t, data["token"])

	// Same email again conflicts, regardless of password or role.
	w = fx.do(http.MethodPost, "/api/auth/register", `{"email":"alice@example.com","password":"other456","role":"admin"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	fx := newFixture()

	cases := []string{
		`{"password":"secret123"}`,                             // missing email
		`{"email":"notanemail","password":"secret123"}`,        // bad email
		`{"email":"a@example.com"}`,                            // missing password
		`{"email":"a@example.com","password":"short"}`,         // under 6 chars
		`{"email":"a@example.com","password":"secret123","role":"owner"}`, // unknown role
	}
	for _, body := range cases {
		w := fx.do(http.MethodPost, "/api/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestRegisterAdminRole(t *testing.T) {
	fx := newFixture()

	w := fx.do(http.MethodPost, "/api/auth/register", `{"email":"boss@example.com","password":"secret123","role":"admin"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	user := dataOf(t, w)["user"].(map[string]any)
	assert.Equal(t, "admin", user["role"])
}

func TestLogin(t *testing.T) {
	fx := newFixture()
	w := fx.do(http.MethodPost, "/api/auth/register", `{"email":"carol@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = fx.do(http.MethodPost, "/api/auth/login", `{"email":"carol@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.NotEmpty(t, data["token"])

	// Wrong password and unknown email answer identically.
	wrong := fx.do(http.MethodPost, "/api/auth/login", `{"email":"carol@example.com","password":"wrongpass"}`, "")
	unknown := fx.do(http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Contains(t, wrong.Body.String(), "invalid email or password")
	assert.Contains(t, unknown.Body.String(), "invalid email or password")
}

func TestAuthAnswers503WhenStoreUnavailable(t *testing.T) {
	fx := newFixture()
	fx.users.fail(repo.ErrUnavailable)

	w := fx.do(http.MethodPost, "/api/auth/register", `{"email":"eve@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "temporarily unavailable")

	w = fx.do(http.MethodPost, "/api/auth/login", `{"email":"eve@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLoginTokenWorksAgainstProtectedRoute(t *testing.T) {
	fx := newFixture()
	w := fx.do(http.MethodPost, "/api/auth/register", `{"email":"dave@example.com","password":"secret123","role":"admin"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = fx.do(http.MethodPost, "/api/auth/login", `{"email":"dave@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := dataOf(t, w)["token"].(string)

	w = fx.do(http.MethodPost, "/api/sweets", `{"name":"Praline","category":"Chocolate","price":2,"quantity":3}`, token)
	assert.Equal(t, http.StatusCreated, w.Code)
}
