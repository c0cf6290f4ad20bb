package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trainctl/internal/api/rest"
	"trainctl/internal/api/websocket"
	"trainctl/internal/config"
	"trainctl/internal/system"
	"trainctl/internal/types"
)

func newTestServer(t *testing.T, selfTest config.SelfTestConfig) (*rest.Server, *system.LifecycleManager) {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Board:    config.BoardConfig{Profile: "sim"},
		SelfTest: selfTest,
	}

	logger := zap.NewNop()
	lifecycle, err := system.NewLifecycleManager(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { lifecycle.Shutdown(context.Background()) })

	return rest.NewServer(cfg, lifecycle, logger, websocket.NewHub(logger)), lifecycle
}

func perform(s *rest.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLedOnOffAndReadback(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodPost, "/api/v1/leds/3/on", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[types.Response](t, w)
	assert.Equal(t, "ok", resp.Status)

	w = perform(s, http.MethodGet, "/api/v1/leds/3", "")
	require.Equal(t, http.StatusOK, w.Code)
	led := decode[types.LedStatus](t, w)
	assert.Equal(t, 3, led.Led)
	assert.Equal(t, "on", led.State)

	w = perform(s, http.MethodPost, "/api/v1/leds/3/off", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/leds", "")
	require.Equal(t, http.StatusOK, w.Code)
	leds := decode[[]types.LedStatus](t, w)
	require.Len(t, leds, 24)
	for _, l := range leds {
		assert.Equal(t, "off", l.State)
	}
}

func TestLedValidation(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodGet, "/api/v1/leds/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/leds/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(s, http.MethodPost, "/api/v1/leds/1/blink", `{"interval_ms": -5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedBlinkAndOverride(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodPost, "/api/v1/leds/5/blink", `{"interval_ms": 10}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/leds/5", "")
	require.Equal(t, http.StatusOK, w.Code)
	led := decode[types.LedStatus](t, w)
	assert.Equal(t, "blinking", led.State)

	// An explicit command cancels the blinker.
	w = perform(s, http.MethodPost, "/api/v1/leds/5/off", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/leds/5", "")
	led = decode[types.LedStatus](t, w)
	assert.Equal(t, "off", led.State)
}

func TestAllLeds(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodPost, "/api/v1/leds/all/on", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/leds", "")
	leds := decode[[]types.LedStatus](t, w)
	require.Len(t, leds, 24)
	for _, l := range leds {
		assert.Equal(t, "on", l.State)
	}

	w = perform(s, http.MethodPost, "/api/v1/leds/all/off", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPower(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodGet, "/api/v1/power", "")
	require.Equal(t, http.StatusOK, w.Code)
	power := decode[types.PowerStatus](t, w)
	assert.False(t, power.Powered)

	w = perform(s, http.MethodPost, "/api/v1/power/on", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/power", "")
	power = decode[types.PowerStatus](t, w)
	assert.True(t, power.Powered)

	w = perform(s, http.MethodPost, "/api/v1/power/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	power = decode[types.PowerStatus](t, w)
	assert.False(t, power.Powered)
}

func TestPoints(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodGet, "/api/v1/points", "")
	require.Equal(t, http.StatusOK, w.Code)
	points := decode[[]types.PointStatus](t, w)
	require.Len(t, points, 4)
	for _, p := range points {
		assert.Equal(t, "normal", p.Position)
	}

	w = perform(s, http.MethodPost, "/api/v1/points/P2/reverse", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/points/P2", "")
	point := decode[types.PointStatus](t, w)
	assert.Equal(t, "reverse", point.Position)

	w = perform(s, http.MethodPost, "/api/v1/points/all/normal", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/points/P2", "")
	point = decode[types.PointStatus](t, w)
	assert.Equal(t, "normal", point.Position)

	w = perform(s, http.MethodPost, "/api/v1/points/P9/toggle", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSensors(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodGet, "/api/v1/sensors", "")
	require.Equal(t, http.StatusOK, w.Code)
	sensors := decode[[]types.SensorStatus](t, w)
	require.Len(t, sensors, 8)
	for _, sensor := range sensors {
		assert.False(t, sensor.Triggered)
	}

	w = perform(s, http.MethodGet, "/api/v1/sensors/S3", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/sensors/S99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelfTestBusyAndCancel(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{Dwell: time.Hour})

	w := perform(s, http.MethodPost, "/api/v1/selftest/sweep", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	started := decode[map[string]string](t, w)
	assert.NotEmpty(t, started["run_id"])

	w = perform(s, http.MethodPost, "/api/v1/selftest/random", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = perform(s, http.MethodPost, "/api/v1/selftest/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(s, http.MethodGet, "/api/v1/selftest", "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[map[string]any](t, w)
	assert.Equal(t, "idle", status["state"])
}

func TestSelfTestSweepCompletes(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{Dwell: time.Millisecond})

	w := perform(s, http.MethodPost, "/api/v1/selftest/sweep", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		w := perform(s, http.MethodGet, "/api/v1/selftest", "")
		var status map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
			return false
		}
		return status["state"] == "done"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSystemStatus(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodGet, "/api/v1/system/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[map[string]any](t, w)
	assert.Equal(t, "sim", status["profile"])
	assert.EqualValues(t, 24, status["led_count"])
}

func TestShutdownEndpoint(t *testing.T) {
	s, lifecycle := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodPost, "/api/v1/system/shutdown", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-lifecycle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown never completed")
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, config.SelfTestConfig{})

	w := perform(s, http.MethodOptions, "/api/v1/power", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
