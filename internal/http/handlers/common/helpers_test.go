package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/studgig-backend/internal/http/middleware"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestGetPagination(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{"", DefaultPageLimit, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=0", DefaultPageLimit, 0},
		{"?limit=1000", MaxPageLimit, 0},
		{"?limit=abc&offset=-3", DefaultPageLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := testContext("/items" + tt.query)
			limit, offset := GetPagination(c)
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestRequireUser(t *testing.T) {
	c, w := testContext("/")
	_, ok := RequireUser(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userID := uuid.New()
	c, _ = testContext("/")
	c.Set(middleware.ContextUserIDKey, userID)
	got, ok := RequireUser(c)
	assert.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestParseUUIDParam(t *testing.T) {
	c, w := testContext("/")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	_, ok := ParseUUIDParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := uuid.New()
	c, _ = testContext("/")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := ParseUUIDParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
