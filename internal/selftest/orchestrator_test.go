package selftest

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trainctl/internal/board"
	"trainctl/internal/controllers"
	"trainctl/internal/hw"
)

func newTestOrchestrator(t *testing.T, cfg Config) (*Orchestrator, *hw.MemoryBackend) {
	t.Helper()

	loader, err := board.NewLoader(nil)
	require.NoError(t, err)
	profile, err := loader.Load("sim")
	require.NoError(t, err)

	mem := hw.NewMemoryBackend("mem")
	hardware, err := hw.NewWithBackends(profile, map[string]hw.Backend{"mem": mem}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { hardware.Close() })

	leds := controllers.NewLedController(hardware, profile, nil, zap.NewNop())
	t.Cleanup(leds.Close)
	sensors := controllers.NewSensorController(hardware, profile, zap.NewNop())

	return NewOrchestrator(leds, sensors, nil, cfg, zap.NewNop()), mem
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return o.Status().State == want
	}, 5*time.Second, 5*time.Millisecond, "waiting for state %s", want)
}

func TestSweepVisitsEveryLedOnce(t *testing.T) {
	o, mem := newTestOrchestrator(t, Config{Dwell: time.Millisecond})

	runID, err := o.StartSweep(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	waitForState(t, o, StateDone)

	status := o.Status()
	assert.Equal(t, 24, status.Progress)
	assert.Equal(t, 24, status.Total)
	assert.Empty(t, status.ErrorMessage)
	assert.Equal(t, runID.String(), status.RunID)

	// One on and one off write per LED, plus the final all-off pass:
	// exactly 24 on/off cycles, no LED visited twice.
	assert.Equal(t, 24*2+24, mem.Ops())

	for led := 4; led <= 27; led++ {
		assert.Equal(t, hw.Low, mem.Level("GPIO"+strconv.Itoa(led)), "GPIO%d", led)
	}
}

func TestRandomRunsConfiguredIterations(t *testing.T) {
	o, mem := newTestOrchestrator(t, Config{Dwell: time.Millisecond, RandomIterations: 10})

	_, err := o.StartRandom(context.Background())
	require.NoError(t, err)

	waitForState(t, o, StateDone)

	status := o.Status()
	assert.Equal(t, 10, status.Progress)
	assert.Equal(t, 10, status.Total)
	assert.Equal(t, 10*2+24, mem.Ops())
}

func TestOnlyOneRunAtATime(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Dwell: time.Hour})

	_, err := o.StartSweep(context.Background())
	require.NoError(t, err)

	_, err = o.StartRandom(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = o.StartMonitor(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBusy)

	assert.True(t, o.Cancel())
	assert.False(t, o.Cancel(), "second cancel has nothing to stop")
}

func TestCancelMidSweepClearsLeds(t *testing.T) {
	o, mem := newTestOrchestrator(t, Config{Dwell: time.Hour})

	_, err := o.StartSweep(context.Background())
	require.NoError(t, err)

	// Let the first LED come on, then pull the plug mid-dwell.
	require.Eventually(t, func() bool {
		return mem.Level("GPIO4") == hw.High
	}, time.Second, time.Millisecond)

	require.True(t, o.Cancel())

	status := o.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Empty(t, status.ErrorMessage)
	assert.Equal(t, hw.Low, mem.Level("GPIO4"), "cancel must leave no LED half-lit")
}

func TestContextCancellationStopsSweep(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Dwell: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := o.StartSweep(ctx)
	require.NoError(t, err)

	cancel()
	waitForState(t, o, StateIdle)
}

func TestMonitorReportsChanges(t *testing.T) {
	o, mem := newTestOrchestrator(t, Config{PollInterval: 5 * time.Millisecond})

	var mu sync.Mutex
	var changes []SensorChange
	onChange := func(c SensorChange) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}

	_, err := o.StartMonitor(context.Background(), onChange)
	require.NoError(t, err)

	// Initial snapshot covers all eight sensors.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 8
	}, time.Second, time.Millisecond)

	mem.SetInput("XB0", hw.High)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		last := changes[len(changes)-1]
		return last.Sensor == "S1" && last.Triggered
	}, time.Second, time.Millisecond)

	// Monitoring never finishes on its own.
	assert.Equal(t, StateMonitoring, o.Status().State)

	require.True(t, o.Cancel())
	assert.Equal(t, StateIdle, o.Status().State)
}

func TestRestartAfterDone(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Dwell: time.Millisecond, RandomIterations: 2})

	_, err := o.StartRandom(context.Background())
	require.NoError(t, err)
	waitForState(t, o, StateDone)

	first := o.Status().RunID
	_, err = o.StartSweep(context.Background())
	require.NoError(t, err)
	waitForState(t, o, StateDone)

	assert.NotEqual(t, first, o.Status().RunID, "each run gets its own id")
}
