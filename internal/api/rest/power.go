package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trainctl/internal/types"
)

// GET /api/v1/power
func (s *Server) getPower(c *gin.Context) {
	powered, err := s.lm.Power().State()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PowerStatus{Powered: powered})
}

// POST /api/v1/power/on
func (s *Server) powerOn(c *gin.Context) {
	if err := s.lm.Power().Enable(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewOKResponse("track power on"))
}

// POST /api/v1/power/off
func (s *Server) powerOff(c *gin.Context) {
	if err := s.lm.Power().Disable(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewOKResponse("track power off"))
}

// POST /api/v1/power/toggle
func (s *Server) powerToggle(c *gin.Context) {
	powered, err := s.lm.Power().Toggle()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PowerStatus{Powered: powered})
}
