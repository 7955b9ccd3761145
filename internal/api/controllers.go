package api

import (
	"errors"
	"net/http"
	"strings"

	"signal-core/pkg/db"

	"github.com/gin-gonic/gin"
)

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.GetSystemStatus(c.Request.Context()))
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.MetricsSnapshot())
}

func (s *Server) getStrategies(c *gin.Context) {
	strategies, err := s.Engine.ListStrategies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}

func (s *Server) activateStrategy(c *gin.Context) {
	s.setStrategyActive(c, true)
}

func (s *Server) deactivateStrategy(c *gin.Context) {
	s.setStrategyActive(c, false)
}

func (s *Server) setStrategyActive(c *gin.Context, active bool) {
	id := c.Param("id")
	err := s.Engine.SetStrategyActive(c.Request.Context(), id, active)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "STRATEGY_NOT_FOUND",
			"error": "strategy not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": active})
}

func (s *Server) getEligibility(c *gin.Context) {
	id := c.Param("id")
	decision := s.Engine.Eligibility(id)
	c.JSON(http.StatusOK, gin.H{
		"strategy_id": id,
		"allow":       decision.Allow,
		"reason":      decision.Reason,
	})
}

func (s *Server) getOrchestratorStates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"states": s.Engine.OrchestratorStates()})
}

// recordTrade ingests a trade outcome for orchestrator bookkeeping.
func (s *Server) recordTrade(c *gin.Context) {
	var req struct {
		StrategyID string   `json:"strategy_id"`
		Pnl        *float64 `json:"pnl"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}
	req.StrategyID = strings.TrimSpace(req.StrategyID)
	if req.StrategyID == "" || req.Pnl == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_FIELDS",
			"error": "strategy_id and pnl are required",
		})
		return
	}

	if err := s.Engine.RecordTrade(c.Request.Context(), req.StrategyID, *req.Pnl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"strategy_id": req.StrategyID,
		"pnl":         *req.Pnl,
	})
}

// evaluateSymbol triggers an on-demand fusion pass.
func (s *Server) evaluateSymbol(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	intent, err := s.Engine.Evaluate(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *Server) getLastDecision(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	intent, ok := s.Engine.LastDecision(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "NO_DECISION",
			"error": "no decision recorded for symbol",
		})
		return
	}
	c.JSON(http.StatusOK, intent)
}
