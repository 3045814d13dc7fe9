package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestServiceFieldOnEveryLine(t *testing.T) {
	var buf bytes.Buffer
	setup(zerolog.InfoLevel, &buf)
	defer Init("info")

	Infof("hello %s", "world")

	line := buf.String()
	if !strings.Contains(line, `"service":"`+serviceName+`"`) {
		t.Errorf("log line missing service field: %s", line)
	}
	if !strings.Contains(line, "hello world") {
		t.Errorf("log line missing message: %s", line)
	}
}

func TestComponentSubLogger(t *testing.T) {
	var buf bytes.Buffer
	setup(zerolog.InfoLevel, &buf)
	defer Init("info")

	realtimeLog := Component("realtime")
	realtimeLog.Info().Msg("client joined")

	line := buf.String()
	if !strings.Contains(line, `"component":"realtime"`) {
		t.Errorf("log line missing component field: %s", line)
	}
}

func TestGinLogger_SkipsHealthProbes(t *testing.T) {
	var buf bytes.Buffer
	setup(zerolog.InfoLevel, &buf)
	defer Init("info")

	router := gin.New()
	router.Use(GinLogger())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/projects", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if buf.Len() != 0 {
		t.Errorf("health probe was logged: %s", buf.String())
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/projects", nil)
	router.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), `"path":"/api/projects"`) {
		t.Errorf("request line missing: %s", buf.String())
	}
}
