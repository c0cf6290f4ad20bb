package interfaces

import (
	"context"

	"trainctl/internal/config"
	"trainctl/internal/controllers"
	"trainctl/internal/hw"
	"trainctl/internal/selftest"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State     string `json:"state"`
	Profile   string `json:"profile"`
	LedCount  int    `json:"led_count"`
	Points    int    `json:"points"`
	Sensors   int    `json:"sensors"`
	WsClients int    `json:"ws_clients"`
}

type LifecycleManager interface {
	Config() *config.Config
	Hardware() *hw.HardwareInterface
	Leds() *controllers.LedController
	Power() *controllers.PowerController
	Points() *controllers.PointsController
	Sensors() *controllers.SensorController
	SelfTest() *selftest.Orchestrator
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
