// Package selftest sequences controller operations for the diagnostic
// modes: a sequential LED sweep, a randomized LED exercise, and a
// continuous sensor monitor. One run at a time; every loop checks for
// cancellation between hardware operations, never mid-transaction.
package selftest

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trainctl/internal/api/websocket"
	"trainctl/internal/controllers"
)

// ErrBusy is returned when a run is started while another is in flight.
var ErrBusy = errors.New("self-test already running")

// Config carries the timing parameters for the diagnostic modes.
type Config struct {
	Dwell            time.Duration
	RandomIterations int
	PollInterval     time.Duration
}

// SensorChange is handed to the monitor callback whenever a sensor flips.
type SensorChange struct {
	Sensor    string
	Triggered bool
}

type Orchestrator struct {
	leds    *controllers.LedController
	sensors *controllers.SensorController
	hub     *websocket.Hub
	logger  *zap.Logger
	cfg     Config

	mu        sync.RWMutex
	state     State
	runID     uuid.UUID
	progress  int
	total     int
	startedAt time.Time
	errMsg    string
	stop      chan struct{}
	stopped   bool

	wg sync.WaitGroup
}

func NewOrchestrator(
	leds *controllers.LedController,
	sensors *controllers.SensorController,
	hub *websocket.Hub,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Dwell <= 0 {
		cfg.Dwell = 250 * time.Millisecond
	}
	if cfg.RandomIterations <= 0 {
		cfg.RandomIterations = 200
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &Orchestrator{
		leds:    leds,
		sensors: sensors,
		hub:     hub,
		logger:  logger,
		cfg:     cfg,
		state:   StateIdle,
	}
}

// Status returns a snapshot of the current or last run.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := Status{
		State:        o.state,
		Progress:     o.progress,
		Total:        o.total,
		StartedAt:    o.startedAt,
		ErrorMessage: o.errMsg,
	}
	if o.runID != uuid.Nil {
		s.RunID = o.runID.String()
	}
	return s
}

// StartSweep walks the LEDs in ascending order, each on for one dwell
// period then off, and finishes in Done with all LEDs off.
func (o *Orchestrator) StartSweep(ctx context.Context) (uuid.UUID, error) {
	runID, err := o.begin(StateSweeping, o.leds.Count())
	if err != nil {
		return uuid.Nil, err
	}
	go o.sweep(ctx)
	return runID, nil
}

// StartRandom exercises random LEDs (repeats allowed) for the configured
// iteration count.
func (o *Orchestrator) StartRandom(ctx context.Context) (uuid.UUID, error) {
	runID, err := o.begin(StateRandomizing, o.cfg.RandomIterations)
	if err != nil {
		return uuid.Nil, err
	}
	go o.random(ctx)
	return runID, nil
}

// StartMonitor polls the sensors at the configured interval and reports
// every change through onChange. It never finishes on its own; it runs
// until Cancel or ctx is done. onChange may be nil.
func (o *Orchestrator) StartMonitor(ctx context.Context, onChange func(SensorChange)) (uuid.UUID, error) {
	runID, err := o.begin(StateMonitoring, 0)
	if err != nil {
		return uuid.Nil, err
	}
	go o.monitor(ctx, onChange)
	return runID, nil
}

// Cancel stops the current run, if any, and blocks until its loop has
// wound down. Reports whether there was a run to cancel.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	if !o.state.active() || o.stopped {
		o.mu.Unlock()
		return false
	}
	o.stopped = true
	close(o.stop)
	o.mu.Unlock()

	o.wg.Wait()
	return true
}

func (o *Orchestrator) begin(state State, total int) (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.active() {
		return uuid.Nil, ErrBusy
	}

	previous := o.state
	o.state = state
	o.runID = uuid.New()
	o.progress = 0
	o.total = total
	o.startedAt = time.Now()
	o.errMsg = ""
	o.stop = make(chan struct{})
	o.stopped = false
	o.wg.Add(1)

	o.logger.Info("self-test started",
		zap.String("run_id", o.runID.String()),
		zap.String("mode", string(state)))
	o.publish(o.runID, state, previous)

	return o.runID, nil
}

func (o *Orchestrator) sweep(ctx context.Context) {
	defer o.wg.Done()

	count := o.leds.Count()
	for index := 1; index <= count; index++ {
		if o.cancelled(ctx) {
			o.abort("")
			return
		}
		if err := o.leds.Set(index, true); err != nil {
			o.abort(err.Error())
			return
		}
		if !o.dwell(ctx) {
			o.abort("")
			return
		}
		if err := o.leds.Set(index, false); err != nil {
			o.abort(err.Error())
			return
		}
		o.advance(index)
	}

	o.allOff()
	o.finish(StateDone, "")
}

func (o *Orchestrator) random(ctx context.Context) {
	defer o.wg.Done()

	count := o.leds.Count()
	for i := 1; i <= o.cfg.RandomIterations; i++ {
		if o.cancelled(ctx) {
			o.abort("")
			return
		}
		index := rand.Intn(count) + 1
		if err := o.leds.Set(index, true); err != nil {
			o.abort(err.Error())
			return
		}
		if !o.dwell(ctx) {
			o.abort("")
			return
		}
		if err := o.leds.Set(index, false); err != nil {
			o.abort(err.Error())
			return
		}
		o.advance(i)
	}

	o.allOff()
	o.finish(StateDone, "")
}

func (o *Orchestrator) monitor(ctx context.Context, onChange func(SensorChange)) {
	defer o.wg.Done()

	report := func(sensor string, triggered bool) {
		if onChange != nil {
			onChange(SensorChange{Sensor: sensor, Triggered: triggered})
		}
		if o.hub != nil {
			o.hub.Broadcast(websocket.NewSensorStateMessage(sensor, triggered))
		}
	}

	// Initial snapshot, then changes only.
	last, err := o.sensors.ReadAll()
	if err != nil {
		o.finish(StateIdle, err.Error())
		return
	}
	for _, id := range o.sensors.IDs() {
		report(id, last[id])
	}

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.finish(StateIdle, "")
			return
		case <-o.stop:
			o.finish(StateIdle, "")
			return
		case <-ticker.C:
			states, err := o.sensors.ReadAll()
			if err != nil {
				// Transient faults must not kill the monitor.
				o.logger.Error("sensor poll failed", zap.Error(err))
				continue
			}
			for _, id := range o.sensors.IDs() {
				if states[id] != last[id] {
					report(id, states[id])
				}
			}
			last = states
			o.advanceBy(1)
		}
	}
}

// cancelled checks for a stop request between hardware operations.
func (o *Orchestrator) cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-o.stop:
		return true
	default:
		return false
	}
}

// dwell sleeps for one dwell period, abandoning the wait on cancellation.
// Returns false when the run should stop.
func (o *Orchestrator) dwell(ctx context.Context) bool {
	timer := time.NewTimer(o.cfg.Dwell)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-o.stop:
		return false
	case <-timer.C:
		return true
	}
}

// abort clears the LEDs and drops back to Idle after a cancellation or
// hardware fault.
func (o *Orchestrator) abort(errMsg string) {
	o.allOff()
	o.finish(StateIdle, errMsg)
}

func (o *Orchestrator) allOff() {
	if err := o.leds.SetAll(false); err != nil {
		o.logger.Warn("failed to clear LEDs after self-test", zap.Error(err))
	}
}

func (o *Orchestrator) advance(progress int) {
	o.mu.Lock()
	o.progress = progress
	o.mu.Unlock()
}

func (o *Orchestrator) advanceBy(n int) {
	o.mu.Lock()
	o.progress += n
	o.mu.Unlock()
}

func (o *Orchestrator) finish(state State, errMsg string) {
	o.mu.Lock()
	previous := o.state
	o.state = state
	o.errMsg = errMsg
	runID := o.runID
	o.mu.Unlock()

	if errMsg != "" {
		o.logger.Error("self-test failed",
			zap.String("run_id", runID.String()),
			zap.String("error", errMsg))
	} else {
		o.logger.Info("self-test finished",
			zap.String("run_id", runID.String()),
			zap.String("state", string(state)))
	}
	o.publish(runID, state, previous)
}

func (o *Orchestrator) publish(runID uuid.UUID, state, previous State) {
	if o.hub == nil {
		return
	}
	id := ""
	if runID != uuid.Nil {
		id = runID.String()
	}
	o.hub.Broadcast(websocket.NewSelfTestStateMessage(id, string(state), string(previous)))
}
