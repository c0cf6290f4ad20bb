package controllers

import (
	"sort"

	"go.uber.org/zap"

	"trainctl/internal/board"
	"trainctl/internal/hw"
)

// SensorController reads the track occupancy sensors. It is stateless:
// no buffering, debouncing or edge detection happens here. Continuous
// monitoring is a caller-side loop over ReadAll.
type SensorController struct {
	hardware *hw.HardwareInterface
	pins     map[string]string
	ids      []string
	logger   *zap.Logger
}

func NewSensorController(hardware *hw.HardwareInterface, profile *board.Profile, logger *zap.Logger) *SensorController {
	ids := make([]string, 0, len(profile.Sensors))
	for id := range profile.Sensors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &SensorController{
		hardware: hardware,
		pins:     profile.Sensors,
		ids:      ids,
		logger:   logger,
	}
}

// IDs returns the configured sensor ids in stable order.
func (c *SensorController) IDs() []string {
	return c.ids
}

// Read reports whether the sensor is triggered (line high).
func (c *SensorController) Read(id string) (bool, error) {
	pin, ok := c.pins[id]
	if !ok {
		return false, newControllerError("sensors", id, ErrUnknownID, nil)
	}
	level, err := c.hardware.Read(pin)
	if err != nil {
		return false, newControllerError("sensors", id, err, nil)
	}
	return level == hw.High, nil
}

// ReadAll reads every sensor. A failing sensor fails the whole call;
// partial snapshots would be worse than none for occupancy decisions.
func (c *SensorController) ReadAll() (map[string]bool, error) {
	states := make(map[string]bool, len(c.ids))
	for _, id := range c.ids {
		triggered, err := c.Read(id)
		if err != nil {
			return nil, err
		}
		states[id] = triggered
	}
	return states, nil
}
