package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
)

func newRouter(cfg cfgpkg.HTTPAuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKeyAuth(cfg, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := cfgpkg.HTTPAuthConfig{Enabled: true, APIKeys: []string{"sk_test_12345678"}}
	r := newRouter(cfg)

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"缺少Key", nil, http.StatusUnauthorized},
		{"无效Key", map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"X-API-Key", map[string]string{"X-API-Key": "sk_test_12345678"}, http.StatusNoContent},
		{"Bearer", map[string]string{"Authorization": "Bearer sk_test_12345678"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	r := newRouter(cfgpkg.HTTPAuthConfig{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk_t****5678", maskAPIKey("sk_test_12345678"))
}
