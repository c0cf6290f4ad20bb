package controllers

import (
	"go.uber.org/zap"

	"trainctl/internal/api/websocket"
	"trainctl/internal/board"
	"trainctl/internal/hw"
)

// PowerController gates track power through a single relay output.
type PowerController struct {
	hardware *hw.HardwareInterface
	pin      string
	hub      *websocket.Hub
	logger   *zap.Logger
}

func NewPowerController(hardware *hw.HardwareInterface, profile *board.Profile, hub *websocket.Hub, logger *zap.Logger) *PowerController {
	return &PowerController{
		hardware: hardware,
		pin:      profile.Power,
		hub:      hub,
		logger:   logger,
	}
}

// Enable switches track power on.
func (c *PowerController) Enable() error {
	if err := c.hardware.Write(c.pin, hw.High); err != nil {
		return newControllerError("power", "track", err, nil)
	}
	c.publish(true)
	return nil
}

// Disable switches track power off.
func (c *PowerController) Disable() error {
	if err := c.hardware.Write(c.pin, hw.Low); err != nil {
		return newControllerError("power", "track", err, nil)
	}
	c.publish(false)
	return nil
}

// Toggle flips track power as a single hardware transaction, so concurrent
// toggles serialize rather than coalesce. Returns the new state.
func (c *PowerController) Toggle() (bool, error) {
	level, err := c.hardware.Toggle(c.pin)
	if err != nil {
		return false, newControllerError("power", "track", err, nil)
	}
	powered := level == hw.High
	c.publish(powered)
	return powered, nil
}

// State reads the relay level back from the hardware.
func (c *PowerController) State() (bool, error) {
	level, err := c.hardware.Read(c.pin)
	if err != nil {
		return false, newControllerError("power", "track", err, nil)
	}
	return level == hw.High, nil
}

func (c *PowerController) publish(powered bool) {
	c.logger.Info("track power switched", zap.Bool("powered", powered))
	if c.hub != nil {
		c.hub.Broadcast(websocket.NewPowerStateMessage(powered))
	}
}
