package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFlattensFields(t *testing.T) {
	var entry map[string]interface{}
	raw := encode("warn", "stock low", map[string]interface{}{
		"product_id": "p-1",
		"error":      errors.New("boom"),
	})
	require.NoError(t, json.Unmarshal(raw, &entry))

	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "stock low", entry["msg"])
	assert.Equal(t, "p-1", entry["product_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotEmpty(t, entry["ts"])
}

func TestJSONLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(&bytes.Buffer{})

	r := gin.New()
	r.Use(JSONLogger())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/ok", "/missing", "/fail", "/live"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3, "healthy probes are not logged")
	assert.Contains(t, lines[0], `"level":"info"`)
	assert.Contains(t, lines[0], `"path":"/ok"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
	assert.Contains(t, lines[2], `"level":"error"`)
	assert.Contains(t, lines[2], `"status":500`)
}

func TestJSONLoggerKeepsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log.SetOutput(&bytes.Buffer{})

	r := gin.New()
	r.Use(JSONLogger())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())
}
