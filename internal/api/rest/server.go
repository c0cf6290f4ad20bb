package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trainctl/internal/api/websocket"
	"trainctl/internal/config"
	"trainctl/internal/interfaces"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	logger *zap.Logger
	server *http.Server
	wsHub  *websocket.Hub
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		lm:     lm,
		logger: logger,
		wsHub:  wsHub,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

// Handler exposes the route tree, mainly for tests driving the API
// without a listening socket.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		leds := v1.Group("/leds")
		{
			leds.GET("", s.listLeds)
			leds.POST("/all/on", s.allLedsOn)
			leds.POST("/all/off", s.allLedsOff)
			leds.GET("/:led", s.getLed)
			leds.POST("/:led/on", s.ledOn)
			leds.POST("/:led/off", s.ledOff)
			leds.POST("/:led/blink", s.ledBlink)
		}

		power := v1.Group("/power")
		{
			power.GET("", s.getPower)
			power.POST("/on", s.powerOn)
			power.POST("/off", s.powerOff)
			power.POST("/toggle", s.powerToggle)
		}

		points := v1.Group("/points")
		{
			points.GET("", s.listPoints)
			points.POST("/all/normal", s.allPointsNormal)
			points.GET("/:id", s.getPoint)
			points.POST("/:id/normal", s.pointNormal)
			points.POST("/:id/reverse", s.pointReverse)
			points.POST("/:id/toggle", s.pointToggle)
		}

		sensors := v1.Group("/sensors")
		{
			sensors.GET("", s.listSensors)
			sensors.GET("/:id", s.getSensor)
		}

		selfTest := v1.Group("/selftest")
		{
			selfTest.GET("", s.getSelfTestStatus)
			selfTest.POST("/sweep", s.startSweep)
			selfTest.POST("/random", s.startRandom)
			selfTest.POST("/monitor", s.startMonitor)
			selfTest.POST("/cancel", s.cancelSelfTest)
		}

		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
			system.POST("/shutdown", s.shutdown)
		}

		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
