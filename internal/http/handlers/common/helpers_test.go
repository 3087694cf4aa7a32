package common

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paginationContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParsePagination_Defaults(t *testing.T) {
	limit, offset := ParsePagination(paginationContext(""))
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)
}

func TestParsePagination_Explicit(t *testing.T) {
	limit, offset := ParsePagination(paginationContext("limit=50&offset=10"))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 10, offset)
}

func TestParsePagination_CapsLimit(t *testing.T) {
	limit, _ := ParsePagination(paginationContext("limit=500"))
	assert.Equal(t, 100, limit)
}

func TestParsePagination_IgnoresGarbage(t *testing.T) {
	limit, offset := ParsePagination(paginationContext("limit=abc&offset=-5"))
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)
}
