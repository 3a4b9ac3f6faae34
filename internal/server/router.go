//go:build !windows

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loykin/supervisr/internal/metrics"
	"github.com/loykin/supervisr/internal/supervisor"
)

// Router exposes the supervisor over HTTP for monitoring loops and remote
// operators. Endpoints under basePath:
//
//	GET  /status   — pure read, never mutates the PID record
//	GET  /healthz  — 200 when the service is running, 503 otherwise
//	POST /start
//	POST /stop
//	POST /restart
//	POST /reload
//
// /metrics is mounted at the root regardless of basePath.
type Router struct {
	sup      *supervisor.Supervisor
	basePath string
}

// NewRouter constructs a Router with a configurable basePath, e.g. "/api".
func NewRouter(sup *supervisor.Supervisor, basePath string) *Router {
	return &Router{sup: sup, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/healthz", r.handleHealthz)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.POST("/restart", r.handleRestart)
	group.POST("/reload", r.handleReload)
	return g
}

// resultBody is the JSON wire form of a supervision result.
type resultBody struct {
	Name         string `json:"name"`
	Outcome      string `json:"outcome"`
	PID          int    `json:"pid,omitempty"`
	StaleCleared bool   `json:"stale_cleared,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (r *Router) body(res supervisor.Result) resultBody {
	b := resultBody{
		Name:         r.sup.Spec().Name,
		Outcome:      res.Outcome.String(),
		PID:          res.PID,
		StaleCleared: res.StaleCleared,
	}
	if res.Err != nil {
		b.Error = res.Err.Error()
	}
	return b
}

func (r *Router) respond(c *gin.Context, res supervisor.Result) {
	code := http.StatusOK
	if res.IsFailure() {
		code = http.StatusInternalServerError
		if errors.Is(res.Err, supervisor.ErrMissingExecutable) {
			code = http.StatusUnprocessableEntity
		}
	}
	c.JSON(code, r.body(res))
}

func (r *Router) handleStatus(c *gin.Context) {
	r.respond(c, r.sup.Status())
}

func (r *Router) handleHealthz(c *gin.Context) {
	res := r.sup.Status()
	if res.Outcome == supervisor.OutcomeAlreadyRunning {
		c.JSON(http.StatusOK, r.body(res))
		return
	}
	c.JSON(http.StatusServiceUnavailable, r.body(res))
}

func (r *Router) handleStart(c *gin.Context) {
	r.respond(c, r.sup.Start(c.Request.Context()))
}

func (r *Router) handleStop(c *gin.Context) {
	// Stop may block for the full escalation window; detach from the
	// request context so a dropped connection cannot abort escalation
	// half-way and leave an unobserved child.
	r.respond(c, r.sup.Stop(context.Background()))
}

func (r *Router) handleRestart(c *gin.Context) {
	r.respond(c, r.sup.Restart(context.Background()))
}

func (r *Router) handleReload(c *gin.Context) {
	r.respond(c, r.sup.Reload())
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, sup *supervisor.Supervisor) *http.Server {
	r := NewRouter(sup, basePath)
	return &http.Server{Addr: addr, Handler: r.Handler()}
}

func sanitizeBase(basePath string) string {
	bp := strings.TrimSpace(basePath)
	if bp == "" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimSuffix(bp, "/")
}
