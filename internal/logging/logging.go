package logging

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// init ensures logs go to stdout so the container runtime captures them.
func init() {
	log.SetOutput(os.Stdout)
}

// LogKV logs a structured JSON line with a level, message, and arbitrary fields.
func LogKV(level, msg string, fields map[string]interface{}) {
	log.Println(string(encode(level, msg, fields)))
}

func encode(level, msg string, fields map[string]interface{}) []byte {
	entry := map[string]interface{}{
		"level": level,
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"msg":   msg,
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	b, _ := json.Marshal(entry)
	return b
}

// Error logs an error-level line for a failed operation.
func Error(msg string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["error"] = err
	LogKV("error", msg, fields)
}

// RequestIDHeader carries the correlation id of a request.
const RequestIDHeader = "X-Request-ID"

// quietPaths are health probes that only get logged when they fail.
var quietPaths = map[string]bool{"/live": true, "/health": true, "/ready": true}

// JSONLogger returns a Gin middleware that logs requests as single-line JSON and
// tags each one with a request id, reusing the caller's X-Request-ID when sent.
func JSONLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		status := c.Writer.Status()
		level := "info"
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			level = "error"
		case status >= http.StatusBadRequest:
			level = "warn"
		case quietPaths[c.Request.URL.Path]:
			return
		}

		fields := map[string]interface{}{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"bytes_out":  c.Writer.Size(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields["query"] = q
		}
		if uid, ok := c.Get("user_id"); ok {
			fields["user_id"] = uid
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}

		LogKV(level, "request", fields)
	}
}
