package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := NewHTTPMetricsWithRegisterer(registry, Config{Environment: "test"})

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/countries/:name/", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/countries/Atlantis/", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/countries/:name/", http.MethodGet, "404"))
	assert.Equal(t, float64(2), got)
}
