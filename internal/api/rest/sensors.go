package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trainctl/internal/types"
)

// GET /api/v1/sensors
func (s *Server) listSensors(c *gin.Context) {
	sensors := s.lm.Sensors()

	states, err := sensors.ReadAll()
	if err != nil {
		writeError(c, err)
		return
	}

	statuses := make([]types.SensorStatus, 0, len(states))
	for _, id := range sensors.IDs() {
		statuses = append(statuses, types.SensorStatus{Sensor: id, Triggered: states[id]})
	}
	c.JSON(http.StatusOK, statuses)
}

// GET /api/v1/sensors/:id
func (s *Server) getSensor(c *gin.Context) {
	id := c.Param("id")

	triggered, err := s.lm.Sensors().Read(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SensorStatus{Sensor: id, Triggered: triggered})
}
