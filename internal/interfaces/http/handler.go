package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"xfeed/internal/application/usecase/monitor"
	"xfeed/internal/domain"
)

const feedBasePath = "/api/v1/feed"

var errMissingGranularity = errors.New("granularity required")

// FeedController 行情同步控制器中 HTTP 层用到的部分
type FeedController interface {
	Selection() domain.Selection
	View() domain.View
	Select(ctx context.Context, sel domain.Selection) error
	Restart(ctx context.Context) error
}

type Handler struct {
	router *gin.Engine
	feed   FeedController
	hub    *Hub
}

// NewHandler hub 为空时不注册 /ws
func NewHandler(feed FeedController, hub *Hub) *Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	h := &Handler{router: router, feed: feed, hub: hub}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/healthz", h.health)

	feed := h.router.Group(feedBasePath)
	{
		feed.GET("", h.getView)
		feed.GET("/series", h.getSeries)
		feed.GET("/granularities", h.getGranularities)
		feed.PUT("/selection", h.putSelection)
		feed.POST("/restart", h.postRestart)
	}

	if h.hub != nil {
		h.router.GET("/ws", h.hub.handleWebSocket)
	}
}

func (h *Handler) health(c *gin.Context) {
	v := h.feed.View()
	c.JSON(http.StatusOK, gin.H{
		"sync":       v.Sync,
		"connection": v.Connection,
	})
}

func (h *Handler) getView(c *gin.Context) {
	c.JSON(http.StatusOK, h.feed.View())
}

func (h *Handler) getSeries(c *gin.Context) {
	v := h.feed.View()
	c.JSON(http.StatusOK, gin.H{
		"selection": v.Selection,
		"session":   v.Session,
		"points":    v.Series.Points(),
	})
}

func (h *Handler) getGranularities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"granularities": domain.Granularities(),
		"current":       h.feed.Selection().Granularity,
	})
}

type selectionPayload struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
}

// putSelection instrument 为空时沿用当前交易对
func (h *Handler) putSelection(c *gin.Context) {
	var payload selectionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if payload.Granularity == "" {
		writeError(c, http.StatusBadRequest, errMissingGranularity)
		return
	}
	g, err := domain.ParseGranularity(payload.Granularity)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	inst := payload.Instrument
	if inst == "" {
		inst = h.feed.Selection().Instrument
	}
	sel, err := domain.NewSelection(inst, g)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.feed.Select(c.Request.Context(), sel); err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, h.feed.View())
}

func (h *Handler) postRestart(c *gin.Context) {
	if err := h.feed.Restart(c.Request.Context()); err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"selection": h.feed.Selection()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, monitor.ErrClosed), errors.Is(err, monitor.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
