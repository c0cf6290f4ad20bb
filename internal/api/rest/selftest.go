package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trainctl/internal/types"
)

// GET /api/v1/selftest
func (s *Server) getSelfTestStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.SelfTest().Status())
}

// POST /api/v1/selftest/sweep
func (s *Server) startSweep(c *gin.Context) {
	// Runs outlive the request, so they get a fresh context.
	runID, err := s.lm.SelfTest().StartSweep(context.Background())
	if err != nil {
		writeError(c, err)
		return
	}
	s.acceptedRun(c, runID, "sweep")
}

// POST /api/v1/selftest/random
func (s *Server) startRandom(c *gin.Context) {
	runID, err := s.lm.SelfTest().StartRandom(context.Background())
	if err != nil {
		writeError(c, err)
		return
	}
	s.acceptedRun(c, runID, "random")
}

// POST /api/v1/selftest/monitor
func (s *Server) startMonitor(c *gin.Context) {
	// Sensor changes go out over the live WebSocket feed.
	runID, err := s.lm.SelfTest().StartMonitor(context.Background(), nil)
	if err != nil {
		writeError(c, err)
		return
	}
	s.acceptedRun(c, runID, "monitor")
}

func (s *Server) acceptedRun(c *gin.Context, runID uuid.UUID, mode string) {
	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID.String(),
		"mode":   mode,
	})
}

// POST /api/v1/selftest/cancel
func (s *Server) cancelSelfTest(c *gin.Context) {
	if s.lm.SelfTest().Cancel() {
		c.JSON(http.StatusOK, types.NewOKResponse("self-test cancelled"))
		return
	}
	c.JSON(http.StatusOK, types.NewOKResponse("no self-test running"))
}
