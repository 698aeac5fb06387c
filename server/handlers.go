package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

// Router builds the gin engine serving the control API, the projection, /ws and /metrics.
func (s *DashboardServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// WebSocket for dashboard viewers
	r.GET("/ws", s.handleWebSocket)
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))

	api := r.Group("/api")
	{
		// --- CONTROL MODEL ---
		api.GET("/centers", s.handleCenters)
		api.GET("/attention", s.handleAttention)
		api.GET("/centers/:center/open", s.handleOpenRooms)
		api.POST("/centers/:center/scenarios/:scenario/:action", s.handleTransition)
		api.PUT("/centers/:center/scenarios/:scenario/fields/:field", s.handleSetField)

		// --- SYNCHRONIZED READ MODEL ---
		api.GET("/projection", s.handleProjection)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *DashboardServer) handleCenters(c *gin.Context) {
	c.JSON(http.StatusOK, s.control.Snapshot())
}

func (s *DashboardServer) handleAttention(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.control.Attention()})
}

func (s *DashboardServer) handleOpenRooms(c *gin.Context) {
	ci, err := s.control.ResolveCenter(c.Param("center"))
	if err != nil {
		writeError(c, err)
		return
	}
	rooms, err := s.control.OpenRooms(ci)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (s *DashboardServer) handleTransition(c *gin.Context) {
	action, err := state.ParseAction(c.Param("action"))
	if err != nil {
		writeError(c, err)
		return
	}
	ci, si, err := s.address(c)
	if err != nil {
		writeError(c, err)
		return
	}
	scenario, err := s.control.Transition(ci, si, action)
	if err != nil {
		writeScenarioError(c, scenario, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenario": scenario})
}

type fieldRequest struct {
	Value *string `json:"value"`
}

func (s *DashboardServer) handleSetField(c *gin.Context) {
	field, err := room.ParseField(c.Param("field"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value required"})
		return
	}
	ci, si, err := s.address(c)
	if err != nil {
		writeError(c, err)
		return
	}
	scenario, err := s.control.SetField(ci, si, field, *req.Value)
	if err != nil {
		writeScenarioError(c, scenario, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenario": scenario})
}

func (s *DashboardServer) handleProjection(c *gin.Context) {
	view := s.projection.View()
	c.JSON(http.StatusOK, gin.H{"centers": view, "order": view.IDs()})
}

// address resolves the :center and :scenario path parameters.
func (s *DashboardServer) address(c *gin.Context) (int, int, error) {
	ci, err := s.control.ResolveCenter(c.Param("center"))
	if err != nil {
		return 0, 0, err
	}
	si, err := strconv.Atoi(c.Param("scenario"))
	if err != nil {
		return 0, 0, room.ErrScenarioNotFound
	}
	return ci, si, nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, room.ErrCenterNotFound), errors.Is(err, room.ErrScenarioNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrUnknownField), errors.Is(err, state.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrTransitionNotAllowed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusCode(err), gin.H{"error": err.Error()})
}

// writeScenarioError also returns the scenario when the change was applied in
// memory but could not be saved.
func writeScenarioError(c *gin.Context, scenario room.Scenario, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		c.JSON(code, gin.H{"error": err.Error(), "scenario": scenario})
		return
	}
	writeError(c, err)
}
