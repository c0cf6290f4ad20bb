package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"trainctl/internal/controllers"
	"trainctl/internal/types"
)

// GET /api/v1/points
func (s *Server) listPoints(c *gin.Context) {
	points := s.lm.Points()
	statuses := make([]types.PointStatus, 0, len(points.IDs()))
	for _, id := range points.IDs() {
		pos, err := points.GetPosition(id)
		if err != nil {
			writeError(c, err)
			return
		}
		statuses = append(statuses, types.PointStatus{Point: id, Position: string(pos)})
	}
	c.JSON(http.StatusOK, statuses)
}

// GET /api/v1/points/:id
func (s *Server) getPoint(c *gin.Context) {
	id := c.Param("id")

	pos, err := s.lm.Points().GetPosition(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PointStatus{Point: id, Position: string(pos)})
}

// POST /api/v1/points/:id/normal
func (s *Server) pointNormal(c *gin.Context) {
	s.setPoint(c, controllers.PositionNormal)
}

// POST /api/v1/points/:id/reverse
func (s *Server) pointReverse(c *gin.Context) {
	s.setPoint(c, controllers.PositionReverse)
}

func (s *Server) setPoint(c *gin.Context, pos controllers.Position) {
	id := c.Param("id")

	if err := s.lm.Points().SetPosition(id, pos); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewOKResponse(fmt.Sprintf("point %s set to %s", id, pos)))
}

// POST /api/v1/points/:id/toggle
func (s *Server) pointToggle(c *gin.Context) {
	id := c.Param("id")

	pos, err := s.lm.Points().Toggle(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PointStatus{Point: id, Position: string(pos)})
}

// POST /api/v1/points/all/normal
func (s *Server) allPointsNormal(c *gin.Context) {
	if err := s.lm.Points().SetAllNormal(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewOKResponse("all points set to normal"))
}
