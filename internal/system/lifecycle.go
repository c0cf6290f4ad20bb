// Package system wires the layers together: board profile, hardware
// interface, controllers, self-test orchestrator and the API surface.
package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trainctl/internal/api/rest"
	"trainctl/internal/api/websocket"
	"trainctl/internal/board"
	"trainctl/internal/config"
	"trainctl/internal/controllers"
	"trainctl/internal/hw"
	"trainctl/internal/interfaces"
	"trainctl/internal/selftest"
)

type LifecycleManager struct {
	config   *config.Config
	profile  *board.Profile
	hardware *hw.HardwareInterface
	leds     *controllers.LedController
	power    *controllers.PowerController
	points   *controllers.PointsController
	sensors  *controllers.SensorController
	selfTest *selftest.Orchestrator
	wsHub    *websocket.Hub
	logger   *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager loads the board profile and claims every configured
// pin. A claim failure aborts construction with nothing left claimed, so a
// misconfigured or contended board fails before any command is accepted.
func NewLifecycleManager(cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	loader, err := board.NewLoader(cfg.Board.SearchPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile loader: %w", err)
	}

	profile, err := loader.Load(cfg.Board.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load board profile %q: %w", cfg.Board.Profile, err)
	}

	hardware, err := hw.New(profile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hardware: %w", err)
	}

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	leds := controllers.NewLedController(hardware, profile, wsHub, logger)
	power := controllers.NewPowerController(hardware, profile, wsHub, logger)
	points := controllers.NewPointsController(hardware, profile, wsHub, logger)
	sensors := controllers.NewSensorController(hardware, profile, logger)

	selfTest := selftest.NewOrchestrator(leds, sensors, wsHub, selftest.Config{
		Dwell:            cfg.SelfTest.Dwell,
		RandomIterations: cfg.SelfTest.RandomIterations,
		PollInterval:     cfg.SelfTest.PollInterval,
	}, logger)

	logger.Info("Hardware initialized",
		zap.String("profile", profile.Name),
		zap.Int("leds", leds.Count()),
		zap.Int("points", len(points.IDs())),
		zap.Int("sensors", len(sensors.IDs())))

	return &LifecycleManager{
		config:       cfg,
		profile:      profile,
		hardware:     hardware,
		leds:         leds,
		power:        power,
		points:       points,
		sensors:      sensors,
		selfTest:     selfTest,
		wsHub:        wsHub,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start brings up the REST API server.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting trainctl")

	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub)
	if err := lm.restServer.Start(); err != nil {
		lm.setState(StateError)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.setState(StateRunning)
	lm.logger.Info("System started successfully",
		zap.String("host", lm.config.Server.Host),
		zap.Int("port", lm.config.Server.Port))
	return nil
}

// Shutdown stops the API, cancels any running self-test and blinkers, and
// releases every pin in reverse claim order. Safe to call more than once.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		lm.setState(StateStopping)

		if lm.restServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, lm.shutdownTimeout())
			defer cancel()
			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}

		lm.selfTest.Cancel()
		lm.leds.Close()

		if err := lm.hardware.Close(); err != nil {
			lm.logger.Error("Hardware release failed", zap.Error(err))
			if shutdownErr == nil {
				shutdownErr = fmt.Errorf("hardware release failed: %w", err)
			}
		}

		lm.setState(StateStopped)
		lm.logger.Info("Shutdown complete")
		close(lm.shutdownChan)
	})

	return shutdownErr
}

// Done is closed once Shutdown has completed, whether it was triggered by
// a signal or through the API.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) shutdownTimeout() time.Duration {
	if lm.config.Server.ShutdownTimeout > 0 {
		return lm.config.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	lm.currentState = state
	lm.stateMu.Unlock()

	lm.wsHub.Broadcast(websocket.NewSystemStatusMessage(state.String()))
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	return interfaces.SystemStatus{
		State:     lm.currentState.String(),
		Profile:   lm.profile.Name,
		LedCount:  lm.leds.Count(),
		Points:    len(lm.points.IDs()),
		Sensors:   len(lm.sensors.IDs()),
		WsClients: lm.wsHub.GetClientCount(),
	}
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

// Hardware returns the shared hardware interface
func (lm *LifecycleManager) Hardware() *hw.HardwareInterface {
	return lm.hardware
}

// Leds returns the LED controller
func (lm *LifecycleManager) Leds() *controllers.LedController {
	return lm.leds
}

// Power returns the track power controller
func (lm *LifecycleManager) Power() *controllers.PowerController {
	return lm.power
}

// Points returns the points controller
func (lm *LifecycleManager) Points() *controllers.PointsController {
	return lm.points
}

// Sensors returns the sensor controller
func (lm *LifecycleManager) Sensors() *controllers.SensorController {
	return lm.sensors
}

// SelfTest returns the self-test orchestrator
func (lm *LifecycleManager) SelfTest() *selftest.Orchestrator {
	return lm.selfTest
}
