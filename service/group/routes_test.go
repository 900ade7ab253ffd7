package group_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jogakzip/jogakzip-server/cmd/models"
	"github.com/jogakzip/jogakzip-server/cmd/utils"
	"github.com/jogakzip/jogakzip-server/service/group"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Group{}))
	return db
}

func setupRouter(db *gorm.DB) http.Handler {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api").Subrouter()
	group.NewHandler(db, utils.PlaintextComparer).RegisterRoutes(subrouter)
	return router
}

func request(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(jsonBytes)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func seedGroup(t *testing.T, db *gorm.DB, g models.Group) models.Group {
	if g.Badges == nil {
		g.Badges = pq.StringArray{}
	}
	require.NoError(t, db.Create(&g).Error)
	return g
}

func TestCreateGroup(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	rr := request(t, handler, "POST", "/api/groups", map[string]interface{}{
		"name":         "family album",
		"password":     "secret",
		"introduction": "our shared memories",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	body := decodeBody(t, rr)
	assert.NotZero(t, body["id"])
	assert.Equal(t, "family album", body["name"])
	assert.Equal(t, float64(0), body["likeCount"])
	assert.Equal(t, float64(0), body["postCount"])
	assert.Equal(t, []interface{}{}, body["badges"])
	assert.Equal(t, true, body["isPublic"])
	// The create response is the one place the password comes back.
	assert.Equal(t, "secret", body["password"])
}

func TestCreateGroupMissingFields(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	rr := request(t, handler, "POST", "/api/groups", map[string]interface{}{
		"password": "secret",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = request(t, handler, "POST", "/api/groups", map[string]interface{}{
		"name": "no password",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetGroupsPagination(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	for i := 0; i < 15; i++ {
		seedGroup(t, db, models.Group{
			Name:     fmt.Sprintf("group %d", i),
			Password: "pw",
			IsPublic: true,
		})
	}

	rr := request(t, handler, "GET", "/api/groups?page=2&pageSize=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, float64(2), body["currentPage"])
	assert.Equal(t, float64(2), body["totalPages"])
	assert.Equal(t, float64(15), body["totalItemCount"])
	assert.Len(t, body["data"], 5)
}

func TestGetGroupsKeywordCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	seedGroup(t, db, models.Group{Name: "alpha", Password: "pw", Introduction: "We keep ABC memories", IsPublic: true})
	seedGroup(t, db, models.Group{Name: "beta", Password: "pw", Introduction: "nothing here", IsPublic: true})

	rr := request(t, handler, "GET", "/api/groups?keyword=abc", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "alpha", data[0].(map[string]interface{})["name"])
}

func TestGetGroupsSortMostLiked(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	for _, likes := range []int{5, 1, 3} {
		seedGroup(t, db, models.Group{Name: "g", Password: "pw", IsPublic: true, LikeCount: likes})
	}

	rr := request(t, handler, "GET", "/api/groups?sortBy=mostLiked", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	data := decodeBody(t, rr)["data"].([]interface{})
	require.Len(t, data, 3)
	var got []float64
	for _, item := range data {
		got = append(got, item.(map[string]interface{})["likeCount"].(float64))
	}
	assert.Equal(t, []float64{5, 3, 1}, got)
}

func TestGetGroupsSortMostPosted(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	for _, posts := range []int{2, 9, 4} {
		seedGroup(t, db, models.Group{Name: "g", Password: "pw", IsPublic: true, PostCount: posts})
	}

	rr := request(t, handler, "GET", "/api/groups?sortBy=mostPosted", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	data := decodeBody(t, rr)["data"].([]interface{})
	require.Len(t, data, 3)
	var got []float64
	for _, item := range data {
		got = append(got, item.(map[string]interface{})["postCount"].(float64))
	}
	assert.Equal(t, []float64{9, 4, 2}, got)
}

// mostBadge orders on the raw badges column, so the exact order depends on
// how the store compares the serialized array (postgres compares text[]
// element-wise, sqlite compares the stored text). Assert the page shape
// rather than a store-specific order.
func TestGetGroupsSortMostBadge(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	seedGroup(t, db, models.Group{Name: "two badges", Password: "pw", IsPublic: true, Badges: pq.StringArray{"7days", "10k-likes"}})
	seedGroup(t, db, models.Group{Name: "one badge", Password: "pw", IsPublic: true, Badges: pq.StringArray{"memory-keeper"}})
	seedGroup(t, db, models.Group{Name: "no badges", Password: "pw", IsPublic: true})

	rr := request(t, handler, "GET", "/api/groups?sortBy=mostBadge", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, float64(3), body["totalItemCount"])
	assert.Len(t, body["data"], 3)
}

func TestGetGroupsIsPublicFilter(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	seedGroup(t, db, models.Group{Name: "open", Password: "pw", IsPublic: true})
	seedGroup(t, db, models.Group{Name: "open too", Password: "pw", IsPublic: true})
	seedGroup(t, db, models.Group{Name: "hidden", Password: "pw", IsPublic: false})

	rr := request(t, handler, "GET", "/api/groups?isPublic=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(2), decodeBody(t, rr)["totalItemCount"])

	rr = request(t, handler, "GET", "/api/groups?isPublic=false", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["totalItemCount"])
}

func TestGetGroupsListProjection(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	seedGroup(t, db, models.Group{
		Name:     "badged",
		Password: "pw",
		IsPublic: true,
		Badges:   pq.StringArray{"7days", "10k-likes"},
	})

	rr := request(t, handler, "GET", "/api/groups", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	data := decodeBody(t, rr)["data"].([]interface{})
	require.Len(t, data, 1)
	item := data[0].(map[string]interface{})
	assert.Equal(t, float64(2), item["badgeCount"])
	assert.NotContains(t, item, "password")
	assert.NotContains(t, item, "badges")
}

func TestGetGroup(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	g := seedGroup(t, db, models.Group{
		Name:     "detail",
		Password: "pw",
		IsPublic: true,
		Badges:   pq.StringArray{"7days"},
	})

	rr := request(t, handler, "GET", fmt.Sprintf("/api/groups/%d", g.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, "detail", body["name"])
	assert.Equal(t, []interface{}{"7days"}, body["badges"])
	assert.NotContains(t, body, "password")

	rr = request(t, handler, "GET", "/api/groups/9999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = request(t, handler, "GET", "/api/groups/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateGroupPartial(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	g := seedGroup(t, db, models.Group{
		Name:         "before",
		Password:     "pw",
		IsPublic:     true,
		Introduction: "keep me",
	})

	// No password is required to update a group.
	rr := request(t, handler, "PUT", fmt.Sprintf("/api/groups/%d", g.ID), map[string]interface{}{
		"name": "after",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, "after", body["name"])
	assert.Equal(t, "keep me", body["introduction"])
	assert.Equal(t, true, body["isPublic"])

	rr = request(t, handler, "PUT", fmt.Sprintf("/api/groups/%d", g.ID), map[string]interface{}{
		"isPublic": false,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decodeBody(t, rr)["isPublic"])
}

func TestDeleteGroup(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	g := seedGroup(t, db, models.Group{Name: "doomed", Password: "pw", IsPublic: true})

	rr := request(t, handler, "DELETE", fmt.Sprintf("/api/groups/%d", g.ID), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = request(t, handler, "DELETE", fmt.Sprintf("/api/groups/%d", g.ID), map[string]interface{}{
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// A failed delete leaves the record retrievable.
	rr = request(t, handler, "GET", fmt.Sprintf("/api/groups/%d", g.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = request(t, handler, "DELETE", fmt.Sprintf("/api/groups/%d", g.ID), map[string]interface{}{
		"password": "pw",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = request(t, handler, "GET", fmt.Sprintf("/api/groups/%d", g.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVerifyPassword(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	g := seedGroup(t, db, models.Group{Name: "locked", Password: "pw", IsPublic: true})

	rr := request(t, handler, "POST", fmt.Sprintf("/api/groups/%d/verify-password", g.ID), map[string]interface{}{
		"password": "pw",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = request(t, handler, "POST", fmt.Sprintf("/api/groups/%d/verify-password", g.ID), map[string]interface{}{
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = request(t, handler, "POST", "/api/groups/9999/verify-password", map[string]interface{}{
		"password": "pw",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLikeGroupMonotonic(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	g := seedGroup(t, db, models.Group{Name: "liked", Password: "pw", IsPublic: true})

	for i := 0; i < 3; i++ {
		rr := request(t, handler, "POST", fmt.Sprintf("/api/groups/%d/like", g.ID), nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := request(t, handler, "GET", fmt.Sprintf("/api/groups/%d", g.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(3), decodeBody(t, rr)["likeCount"])

	rr = request(t, handler, "POST", "/api/groups/9999/like", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIsPublicProjection(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	g := seedGroup(t, db, models.Group{Name: "visible", Password: "pw", IsPublic: true})

	rr := request(t, handler, "GET", fmt.Sprintf("/api/groups/%d/is-public", g.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Len(t, body, 2)
	assert.Equal(t, float64(g.ID), body["id"])
	assert.Equal(t, true, body["isPublic"])
}

func TestGetGroupsSortLatest(t *testing.T) {
	db := setupTestDB(t)
	handler := setupRouter(db)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"oldest", "middle", "newest"} {
		seedGroup(t, db, models.Group{
			Name:      name,
			Password:  "pw",
			IsPublic:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	rr := request(t, handler, "GET", "/api/groups", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	data := decodeBody(t, rr)["data"].([]interface{})
	require.Len(t, data, 3)
	assert.Equal(t, "newest", data[0].(map[string]interface{})["name"])
	assert.Equal(t, "oldest", data[2].(map[string]interface{})["name"])
}
