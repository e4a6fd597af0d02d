package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scalpbot/internal/config"
	"scalpbot/internal/engine"
	"scalpbot/internal/repository"
)

type BotHandler struct {
	Engine *engine.Engine
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *BotHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.GET("/status", h.status)
	g.POST("/start", h.start)
	g.POST("/stop", h.stop)
	g.GET("/config", h.getConfig)
	g.PUT("/config", h.putConfig)
	g.GET("/positions", h.positions)
	g.POST("/positions/close-all", h.closeAll)
	g.GET("/trades", h.trades)
	g.GET("/stats", h.stats)
	g.POST("/stats/reset", h.resetStats)
}

// @Summary Engine status
// @Tags bot
// @Success 200 {object} engine.Status
// @Router /api/v1/status [get]
func (h *BotHandler) status(c *gin.Context) {
	Ok(c, h.Engine.Status(), nil)
}

// @Summary Start trading
// @Tags bot
// @Success 200 {object} engine.Status
// @Failure 409 {object} map[string]any
// @Router /api/v1/start [post]
func (h *BotHandler) start(c *gin.Context) {
	if err := h.Engine.Start(c.Request.Context()); err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			Error(c, http.StatusConflict, err.Error())
			return
		}
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, h.Engine.Status(), nil)
}

// @Summary Stop trading
// @Tags bot
// @Success 200 {object} engine.Status
// @Failure 409 {object} map[string]any
// @Router /api/v1/stop [post]
func (h *BotHandler) stop(c *gin.Context) {
	if err := h.Engine.Stop(c.Request.Context()); err != nil {
		if errors.Is(err, engine.ErrNotRunning) {
			Error(c, http.StatusConflict, err.Error())
			return
		}
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, h.Engine.Status(), nil)
}

type configPayload struct {
	Strategy config.StrategyConfig `json:"strategy"`
	Risk     config.RiskConfig     `json:"risk"`
}

// @Summary Current strategy and risk configuration
// @Tags config
// @Success 200 {object} handler.configPayload
// @Router /api/v1/config [get]
func (h *BotHandler) getConfig(c *gin.Context) {
	scfg, rcfg := h.Engine.Config()
	Ok(c, configPayload{Strategy: scfg, Risk: rcfg}, nil)
}

// @Summary Replace strategy and risk configuration
// @Tags config
// @Accept json
// @Param body body handler.configPayload true "new configuration"
// @Success 200 {object} handler.configPayload
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/v1/config [put]
func (h *BotHandler) putConfig(c *gin.Context) {
	var payload configPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Engine.UpdateConfig(payload.Strategy, payload.Risk); err != nil {
		if errors.Is(err, engine.ErrEngineRunning) {
			Error(c, http.StatusConflict, err.Error())
			return
		}
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if h.Logger != nil {
		h.Logger.Info("configuration replaced")
	}
	scfg, rcfg := h.Engine.Config()
	Ok(c, configPayload{Strategy: scfg, Risk: rcfg}, nil)
}

// @Summary Open positions
// @Tags positions
// @Success 200 {array} models.Position
// @Router /api/v1/positions [get]
func (h *BotHandler) positions(c *gin.Context) {
	Ok(c, h.Engine.Positions(), nil)
}

// @Summary Close all open positions
// @Tags positions
// @Success 200 {object} engine.Status
// @Router /api/v1/positions/close-all [post]
func (h *BotHandler) closeAll(c *gin.Context) {
	reason := strings.TrimSpace(c.Query("reason"))
	if reason == "" {
		reason = "manual close"
	}
	h.Engine.CloseAllPositions(c.Request.Context(), reason)
	Ok(c, h.Engine.Status(), nil)
}

// @Summary Recent trades
// @Tags trades
// @Success 200 {array} models.Trade
// @Router /api/v1/trades [get]
func (h *BotHandler) trades(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	persisted := strings.EqualFold(strings.TrimSpace(c.Query("source")), "db")
	if persisted && h.Repo != nil {
		offset := intQuery(c, "offset", 0)
		params := repository.ListTradesParams{Limit: limit, Offset: offset}
		if v := strings.TrimSpace(c.Query("symbol")); v != "" {
			params.Symbol = &v
		}
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			params.Status = &v
		}
		if raw := strings.TrimSpace(c.Query("since")); raw != "" {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				t := ts.UTC()
				params.Since = &t
			}
		}
		items, err := h.Repo.ListTrades(c.Request.Context(), params)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error())
			return
		}
		total, err := h.Repo.CountTrades(c.Request.Context(), params)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error())
			return
		}
		Ok(c, items, paginationMeta(limit, offset, total))
		return
	}
	Ok(c, h.Engine.Trades(limit), nil)
}

// @Summary Session statistics
// @Tags stats
// @Success 200 {object} map[string]any
// @Router /api/v1/stats [get]
func (h *BotHandler) stats(c *gin.Context) {
	stats := h.Engine.Stats()
	Ok(c, stats, map[string]any{"win_rate": stats.WinRate()})
}

// @Summary Reset daily statistics
// @Tags stats
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/v1/stats/reset [post]
func (h *BotHandler) resetStats(c *gin.Context) {
	if err := h.Engine.ResetDailyStats(); err != nil {
		if errors.Is(err, engine.ErrEngineRunning) {
			Error(c, http.StatusConflict, err.Error())
			return
		}
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, h.Engine.Stats(), nil)
}
