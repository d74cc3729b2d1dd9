package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/okian/genie/pkg/logger"
)

// Handler answers solver-side calls.
type Handler interface {
	Commit(ctx context.Context, req CommitRequest) (CommitResponse, error)
	Reveal(ctx context.Context, req RevealRequest) (RevealResponse, error)
	Forward(ctx context.Context, req ForwardRequest) (ForwardResponse, error)
}

// NewRouter mounts h on a gin engine at the solver endpoint paths.
func NewRouter(h Handler, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Get().Named("solver_http")
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST(PathCommit, func(c *gin.Context) {
		var req CommitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
		resp, err := h.Commit(c.Request.Context(), req)
		respond(c, resp, err)
	})
	r.POST(PathReveal, func(c *gin.Context) {
		var req RevealRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
		resp, err := h.Reveal(c.Request.Context(), req)
		respond(c, resp, err)
	})
	r.POST(PathForward, func(c *gin.Context) {
		var req ForwardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
		resp, err := h.Forward(c.Request.Context(), req)
		respond(c, resp, err)
	})
	return r
}

func respond(c *gin.Context, body any, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, body)
	case errors.Is(err, ErrNotCommitted):
		abort(c, http.StatusNotFound, err)
	case errors.Is(err, ErrUnavailable):
		abort(c, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		abort(c, http.StatusGatewayTimeout, err)
	default:
		abort(c, http.StatusInternalServerError, err)
	}
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func requestLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug(c.Request.Context(), "request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.String("hotkey", c.GetHeader(HeaderHotkey)),
			logger.Duration("took", time.Since(start)),
		)
	}
}
