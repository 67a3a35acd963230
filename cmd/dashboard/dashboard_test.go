package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/berlin-covid/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Output: config.OutputConfig{Dir: t.TempDir()},
		HTTP:   config.HTTPConfig{TimeoutSecs: 2},
		Server: config.ServerConfig{Port: 8080},
		Geo:    config.GeoConfig{FeatureKey: "Gemeinde_name"},
	}
}

func TestNewHandlerHealth(t *testing.T) {
	handler, err := newHandler(context.Background(), testConfig(t))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/map.geojson", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewHandlerLoadsBoundaries(t *testing.T) {
	cfg := testConfig(t)
	cfg.Geo.BoundariesURL = filepath.Join("..", "..", "internal", "geo", "testdata", "bezirke.geojson")

	handler, err := newHandler(context.Background(), cfg)
	require.NoError(t, err)

	// No exports yet, but the map route is wired
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/map.geojson", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNewHandlerBadBoundariesDisablesMap(t *testing.T) {
	cfg := testConfig(t)
	missing := filepath.Join(t.TempDir(), "missing.geojson")
	cfg.Geo.BoundariesURL = missing
	_, statErr := os.Stat(missing)
	require.True(t, os.IsNotExist(statErr))

	handler, err := newHandler(context.Background(), cfg)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/map.geojson", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServeShutsDownOnCancel(t *testing.T) {
	handler, err := newHandler(context.Background(), testConfig(t))
	require.NoError(t, err)

	port := freePort(t)
	srv := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: handler}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		res, err := http.Get(url)
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
