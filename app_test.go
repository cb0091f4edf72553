package spacetraveling_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/spacetraveling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCMSServer(t *testing.T) *httptest.Server {
	t.Helper()

	t.Setenv("CMS_DB_DSN", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	t.Setenv("PRISMIC_ACCESS_TOKEN", "token")

	cmsApp, err := spacetraveling.NewCMSApp(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(cmsApp.Handler())
	t.Cleanup(srv.Close)

	return srv
}

func get(t *testing.T, h http.Handler, target string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	return rec.Code, string(body)
}

func TestNewApp_AgainstLocalCMS(t *testing.T) {
	srv := newCMSServer(t)

	t.Setenv("PRISMIC_API_ENDPOINT", srv.URL+"/api/v2")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("REVALIDATE", "1m")

	app, err := spacetraveling.NewApp(context.Background())
	require.NoError(t, err)

	code, body := get(t, app.Handler(), "/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `href="/post/mapas-com-react-usando-leaflet"`)
	assert.Contains(t, body, "<time>02 abr 2021</time>")
	assert.Contains(t, body, "Carregar mais posts")

	code, body = get(t, app.Handler(), "/post/como-utilizar-hooks")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Como utilizar Hooks")

	code, body = get(t, app.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "spacetraveling_content_api_requests_total")
	assert.Contains(t, body, "spacetraveling_prerender_regenerations_total")
}

func TestNewApp_MetricsDisabled(t *testing.T) {
	srv := newCMSServer(t)

	t.Setenv("PRISMIC_API_ENDPOINT", srv.URL+"/api/v2")
	t.Setenv("METRICS_ENABLED", "false")

	app, err := spacetraveling.NewApp(context.Background())
	require.NoError(t, err)

	code, _ := get(t, app.Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad revalidate", key: "REVALIDATE", val: "soon"},
		{name: "negative timeout", key: "CONTENT_API_TIMEOUT", val: "-1s"},
		{name: "relative endpoint", key: "PRISMIC_API_ENDPOINT", val: "/api/v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := spacetraveling.NewApp(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestGetLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected slog.Level
	}{
		{value: "debug", expected: slog.LevelDebug},
		{value: "info", expected: slog.LevelInfo},
		{value: "warn", expected: slog.LevelWarn},
		{value: "error", expected: slog.LevelError},
		{value: "loud", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)

			assert.Equal(t, tt.expected, spacetraveling.GetLogLevelFromEnv())
		})
	}
}

func TestNewLoggerFromEnv_JSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")

	var buf bytes.Buffer

	logger := spacetraveling.NewLoggerFromEnv(&buf)
	logger.Debug("hidden")
	logger.Info("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}
