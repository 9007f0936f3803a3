package report

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/position"
)

// StateFn reports the current position lifecycle state.
type StateFn func() position.State

/// Server exposes a read-only view of the bot: state, trade history, decision
// history, and aggregate performance. It never mutates anything.
type Server struct {
	addr   string
	router *gin.Engine
}

type Config struct {
	Addr   string
	Symbol string
	Store  *ledger.Ledger
	State  StateFn
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("report server requires a ledger")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8360"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/status", statusHandler(cfg))
	api.GET("/trades", tradesHandler(cfg.Store))
	api.GET("/decisions", decisionsHandler(cfg.Store))
	api.GET("/stats", statsHandler(cfg.Store))

	return &Server{addr: cfg.Addr, router: router}, nil
}

func statusHandler(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := position.StateFlat
		if cfg.State != nil {
			state = cfg.State()
		}
		open, err := cfg.Store.LatestOpenTrade(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"symbol": cfg.Symbol,
			"state":  state,
			"open":   open,
		})
	}
}

func tradesHandler(store *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 50)
		trades, err := store.ClosedTrades(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"trades": trades})
	}
}

func decisionsHandler(store *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 50)
		decisions, err := store.RecentDecisions(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"decisions": decisions})
	}
}

func statsHandler(store *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var window time.Duration
		if days := queryInt(c, "days", 0); days > 0 {
			window = time.Duration(days) * 24 * time.Hour
		}
		stats, err := store.Stats(c.Request.Context(), window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
