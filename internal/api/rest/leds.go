package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trainctl/internal/types"
)

const defaultBlinkInterval = 500 * time.Millisecond

func (s *Server) ledParam(c *gin.Context) (int, bool) {
	led, err := strconv.Atoi(c.Param("led"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("led index must be a number"))
		return 0, false
	}
	return led, true
}

// GET /api/v1/leds
func (s *Server) listLeds(c *gin.Context) {
	leds := s.lm.Leds()
	statuses := make([]types.LedStatus, 0, leds.Count())
	for led := 1; led <= leds.Count(); led++ {
		state, err := leds.State(led)
		if err != nil {
			writeError(c, err)
			return
		}
		statuses = append(statuses, types.LedStatus{Led: led, State: state})
	}
	c.JSON(http.StatusOK, statuses)
}

// GET /api/v1/leds/:led
func (s *Server) getLed(c *gin.Context) {
	led, ok := s.ledParam(c)
	if !ok {
		return
	}

	state, err := s.lm.Leds().State(led)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.LedStatus{Led: led, State: state})
}

// POST /api/v1/leds/:led/on
func (s *Server) ledOn(c *gin.Context) {
	s.setLed(c, true)
}

// POST /api/v1/leds/:led/off
func (s *Server) ledOff(c *gin.Context) {
	s.setLed(c, false)
}

func (s *Server) setLed(c *gin.Context, on bool) {
	led, ok := s.ledParam(c)
	if !ok {
		return
	}

	if err := s.lm.Leds().Set(led, on); err != nil {
		writeError(c, err)
		return
	}

	state := "off"
	if on {
		state = "on"
	}
	c.JSON(http.StatusOK, types.NewOKResponse(fmt.Sprintf("led %d %s", led, state)))
}

// POST /api/v1/leds/:led/blink
func (s *Server) ledBlink(c *gin.Context) {
	led, ok := s.ledParam(c)
	if !ok {
		return
	}

	var req struct {
		IntervalMs int `json:"interval_ms"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("invalid request body: "+err.Error()))
			return
		}
	}

	interval := defaultBlinkInterval
	if req.IntervalMs != 0 {
		interval = time.Duration(req.IntervalMs) * time.Millisecond
	}

	if err := s.lm.Leds().Blink(led, interval); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewOKResponse(fmt.Sprintf("led %d blinking every %s", led, interval)))
}

// POST /api/v1/leds/all/on
func (s *Server) allLedsOn(c *gin.Context) {
	s.setAllLeds(c, true)
}

// POST /api/v1/leds/all/off
func (s *Server) allLedsOff(c *gin.Context) {
	s.setAllLeds(c, false)
}

func (s *Server) setAllLeds(c *gin.Context, on bool) {
	if err := s.lm.Leds().SetAll(on); err != nil {
		writeError(c, err)
		return
	}

	state := "off"
	if on {
		state = "on"
	}
	c.JSON(http.StatusOK, types.NewOKResponse("all leds "+state))
}
