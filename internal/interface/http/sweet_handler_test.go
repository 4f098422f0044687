package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/entity"
	repo "github.com/SwatiSTiwari/Sweet-Shop-Management-System/internal/domain/repository"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response body: %s", w.Body.String())
	return body
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, w)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %s", w.Body.String())
	return data
}

func itemIDs(t *testing.T, data map[string]any) []string {
	t.Helper()
	items, ok := data["items"].([]any)
	require.True(t, ok)
	ids := make([]string, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		require.True(t, ok)
		ids = append(ids, m["id"].(string))
	}
	return ids
}

func TestListDefaultsAndStablePagination(t *testing.T) {
	fx := newFixture()
	for i := 0; i < 25; i++ {
		fx.addSweet(t, fmt.Sprintf("Sweet %02d", i), "Misc", 1.00, 5, "")
	}

	w := fx.get("/api/sweets")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(25), data["total"])
	assert.Equal(t, float64(20), data["limit"])
	assert.Equal(t, float64(0), data["offset"])
	page1 := itemIDs(t, data)
	require.Len(t, page1, 20)

	w = fx.get("/api/sweets?limit=20&offset=20")
	require.Equal(t, http.StatusOK, w.Code)
	data = dataOf(t, w)
	page2 := itemIDs(t, data)
	require.Len(t, page2, 5)

	seen := make(map[string]bool, len(page1))
	for _, id := range page1 {
		seen[id] = true
	}
	for _, id := range page2 {
		assert.False(t, seen[id], "id %s appeared on both pages", id)
	}
}

func TestListRejectsBadPagination(t *testing.T) {
	fx := newFixture()

	for _, q := range []string{"limit=0", "limit=500", "limit=abc", "offset=-1", "minPrice=-2"} {
		w := fx.get("/api/sweets?" + q)
		assert.Equal(t, http.StatusBadRequest, w.Code, "query %q", q)
	}
}

func TestListFilters(t *testing.T) {
	fx := newFixture()
	fx.addSweet(t, "Dark Truffle", "Chocolate", 3.00, 5, "")
	fx.addSweet(t, "Milk Truffle", "Chocolate", 2.00, 5, "")
	fx.addSweet(t, "Lemon Drop", "Hard Candy", 0.50, 50, "")

	w := fx.get("/api/sweets?category=Chocolate&minPrice=2.5")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(1), data["total"])
	ids := itemIDs(t, data)
	require.Len(t, ids, 1)
}

func TestSearchMatchesNameAndDescription(t *testing.T) {
	fx := newFixture()
	fx.addSweet(t, "Zebra Bar", "Bars", 2.00, 5, "striped caramel treat")
	fx.addSweet(t, "Apple Drop", "Hard Candy", 0.30, 50, "caramel coated")
	fx.addSweet(t, "Mint Leaf", "Hard Candy", 0.25, 30, "no sugar")

	w := fx.get("/api/sweets/search?q=caramel")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	items, ok := data["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "Apple Drop", first["name"], "results should sort by name")
}

func TestCreateRequiresAdmin(t *testing.T) {
	fx := newFixture()
	_, customerToken := fx.addUser(t, "customer@example.com", entity.RoleCustomer)
	_, adminToken := fx.addUser(t, "admin@example.com", entity.RoleAdmin)

	body := `{"name":"Truffle","category":"Chocolate","price":2.5,"quantity":10}`

	w := fx.do(http.MethodPost, "/api/sweets", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = fx.do(http.MethodPost, "/api/sweets", body, customerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = fx.do(http.MethodPost, "/api/sweets", body, adminToken)
	require.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	sweet := data["sweet"].(map[string]any)
	assert.Equal(t, "Truffle", sweet["name"])
	assert.Equal(t, float64(10), sweet["quantity"])
}

func TestCreateValidation(t *testing.T) {
	fx := newFixture()
	_, adminToken := fx.addUser(t, "admin@example.com", entity.RoleAdmin)

	cases := []string{
		`{"category":"Chocolate","price":2.5,"quantity":10}`,        // missing name
		`{"name":"X","category":"Chocolate","quantity":10}`,         // missing price
		`{"name":"X","category":"Chocolate","price":-1,"quantity":10}`, // negative price
		`{"name":"X","category":"Chocolate","price":1,"quantity":-5}`,  // negative quantity
		`{"name":"X","category":"C","price":1,"quantity":1,"image_url":"notaurl"}`,
	}
	for _, body := range cases {
		w := fx.do(http.MethodPost, "/api/sweets", body, adminToken)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}

	// Zero price and zero quantity are both allowed.
	w := fx.do(http.MethodPost, "/api/sweets", `{"name":"Free Sample","category":"Misc","price":0,"quantity":0}`, adminToken)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUpdatePartial(t *testing.T) {
	fx := newFixture()
	_, adminToken := fx.addUser(t, "admin@example.com", entity.RoleAdmin)
	s := fx.addSweet(t, "Nougat", "Bars", 3.00, 12, "almond nougat")

	w := fx.do(http.MethodPut, "/api/sweets/"+s.ID, `{"price":3.5}`, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	sweet := dataOf(t, w)["sweet"].(map[string]any)
	assert.Equal(t, 3.5, sweet["price"])
	assert.Equal(t, "Nougat", sweet["name"])
	assert.Equal(t, float64(12), sweet["quantity"])

	w = fx.do(http.MethodPut, "/api/sweets/does-not-exist", `{"price":1}`, adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIsIdempotent(t *testing.T) {
	fx := newFixture()
	_, adminToken := fx.addUser(t, "admin@example.com", entity.RoleAdmin)
	s := fx.addSweet(t, "Toffee", "Bars", 0.50, 1, "")

	w := fx.do(http.MethodDelete, "/api/sweets/"+s.ID, "", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = fx.do(http.MethodDelete, "/api/sweets/"+s.ID, "", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPurchase(t *testing.T) {
	fx := newFixture()
	_, customerToken := fx.addUser(t, "customer@example.com", entity.RoleCustomer)
	s := fx.addSweet(t, "Truffle", "Chocolate", 2.50, 10, "")

	w := fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", `{"quantity":3}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", `{"quantity":3}`, customerToken)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	purchase := data["purchase"].(map[string]any)
	assert.Equal(t, float64(3), purchase["quantity"])
	assert.Equal(t, 2.5, purchase["unit_price"])
	assert.Equal(t, 7.5, purchase["total_price"])
	assert.Equal(t, float64(7), purchase["remaining_stock"])
	sweet := data["sweet"].(map[string]any)
	assert.Equal(t, float64(7), sweet["quantity"])

	// More than remaining stock is rejected and stock is untouched.
	w = fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", `{"quantity":8}`, customerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient quantity in stock")

	w = fx.get("/api/sweets?search=Truffle")
	require.Equal(t, http.StatusOK, w.Code)
	items := dataOf(t, w)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(7), items[0].(map[string]any)["quantity"])
}

func TestPurchaseValidation(t *testing.T) {
	fx := newFixture()
	_, customerToken := fx.addUser(t, "customer@example.com", entity.RoleCustomer)
	s := fx.addSweet(t, "Fudge", "Chocolate", 1.00, 5, "")

	for _, body := range []string{`{}`, `{"quantity":0}`, `{"quantity":-2}`, `{"quantity":"three"}`} {
		w := fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", body, customerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}

	w := fx.do(http.MethodPost, "/api/sweets/unknown-id/purchase", `{"quantity":1}`, customerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestockIsAdminOnly(t *testing.T) {
	fx := newFixture()
	_, customerToken := fx.addUser(t, "customer@example.com", entity.RoleCustomer)
	_, adminToken := fx.addUser(t, "admin@example.com", entity.RoleAdmin)
	s := fx.addSweet(t, "Jalebi", "Indian", 1.25, 6, "")

	w := fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/restock", `{"quantity":4}`, customerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/restock", `{"quantity":4}`, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	restock := dataOf(t, w)["restock"].(map[string]any)
	assert.Equal(t, float64(4), restock["added_quantity"])
	assert.Equal(t, float64(6), restock["previous_stock"])
	assert.Equal(t, float64(10), restock["new_stock"])
}

func TestUploadImageRequiresFile(t *testing.T) {
	fx := newFixture()
	_, adminToken := fx.addUser(t, "admin@example.com", entity.RoleAdmin)
	s := fx.addSweet(t, "Toffee", "Bars", 0.50, 1, "")

	w := fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/image", "", adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoreUnavailableAnswers503(t *testing.T) {
	fx := newFixture()
	_, customerToken := fx.addUser(t, "customer@example.com", entity.RoleCustomer)
	s := fx.addSweet(t, "Truffle", "Chocolate", 2.50, 10, "")

	fx.sweets.fail(repo.ErrUnavailable)

	w := fx.get("/api/sweets")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "temporarily unavailable")

	w = fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", `{"quantity":1}`, customerToken)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// The sentinel also covers the auth middleware's user re-read.
	fx.sweets.fail(nil)
	fx.users.fail(repo.ErrUnavailable)
	w = fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", `{"quantity":1}`, customerToken)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	fx := newFixture()
	u, _ := fx.addUser(t, "customer@example.com", entity.RoleCustomer)
	s := fx.addSweet(t, "Fudge", "Chocolate", 1.00, 5, "")

	w := fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", `{"quantity":1}`, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A valid token for a user that no longer exists is rejected.
	token, _, err := fx.jwt.Generate("00000000-0000-0000-0000-000000000000", u.Email, u.Role)
	require.NoError(t, err)
	w = fx.do(http.MethodPost, "/api/sweets/"+s.ID+"/purchase", `{"quantity":1}`, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
