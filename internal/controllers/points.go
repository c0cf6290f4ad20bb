package controllers

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"trainctl/internal/api/websocket"
	"trainctl/internal/board"
	"trainctl/internal/hw"
)

// Position is a point's mechanical position.
type Position string

const (
	PositionNormal  Position = "normal"
	PositionReverse Position = "reverse"
)

// ParsePosition converts user input into a Position.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionNormal, PositionReverse:
		return Position(s), nil
	default:
		return "", newControllerError("points", s, ErrInvalidPosition,
			fmt.Errorf("position must be %q or %q", PositionNormal, PositionReverse))
	}
}

// PointsController drives the turnout point motors. The reported position
// is always derived from pin readback, never from the last command, so a
// caller can distinguish "command sent" from "position achieved".
type PointsController struct {
	hardware *hw.HardwareInterface
	pins     map[string]string
	ids      []string
	hub      *websocket.Hub
	logger   *zap.Logger
}

func NewPointsController(hardware *hw.HardwareInterface, profile *board.Profile, hub *websocket.Hub, logger *zap.Logger) *PointsController {
	ids := make([]string, 0, len(profile.Points))
	for id := range profile.Points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &PointsController{
		hardware: hardware,
		pins:     profile.Points,
		ids:      ids,
		hub:      hub,
		logger:   logger,
	}
}

// IDs returns the configured point ids in stable order.
func (c *PointsController) IDs() []string {
	return c.ids
}

func (c *PointsController) pin(id string) (string, error) {
	pin, ok := c.pins[id]
	if !ok {
		return "", newControllerError("points", id, ErrUnknownID, nil)
	}
	return pin, nil
}

// SetPosition drives the point motor. The mechanism needs time to travel;
// callers that must confirm the new position should allow the actuator to
// settle before calling GetPosition.
func (c *PointsController) SetPosition(id string, pos Position) error {
	pin, err := c.pin(id)
	if err != nil {
		return err
	}
	level := hw.Low
	if pos == PositionReverse {
		level = hw.High
	}
	if err := c.hardware.Write(pin, level); err != nil {
		return newControllerError("points", id, err, nil)
	}

	c.logger.Info("point commanded",
		zap.String("point", id),
		zap.String("position", string(pos)))
	if c.hub != nil {
		c.hub.Broadcast(websocket.NewPointsStateMessage(id, string(pos)))
	}
	return nil
}

// GetPosition reads the point's position back from the pin.
func (c *PointsController) GetPosition(id string) (Position, error) {
	pin, err := c.pin(id)
	if err != nil {
		return "", err
	}
	level, err := c.hardware.Read(pin)
	if err != nil {
		return "", newControllerError("points", id, err, nil)
	}
	if level == hw.High {
		return PositionReverse, nil
	}
	return PositionNormal, nil
}

// Toggle throws the point to the opposite position as a single hardware
// transaction. Returns the commanded position.
func (c *PointsController) Toggle(id string) (Position, error) {
	pin, err := c.pin(id)
	if err != nil {
		return "", err
	}
	level, err := c.hardware.Toggle(pin)
	if err != nil {
		return "", newControllerError("points", id, err, nil)
	}

	pos := PositionNormal
	if level == hw.High {
		pos = PositionReverse
	}
	c.logger.Info("point toggled",
		zap.String("point", id),
		zap.String("position", string(pos)))
	if c.hub != nil {
		c.hub.Broadcast(websocket.NewPointsStateMessage(id, string(pos)))
	}
	return pos, nil
}

// SetAllNormal returns every point to the normal position, the safe state
// for running the mainline.
func (c *PointsController) SetAllNormal() error {
	for _, id := range c.ids {
		if err := c.SetPosition(id, PositionNormal); err != nil {
			return err
		}
	}
	return nil
}
