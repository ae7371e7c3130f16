package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Version is overridden at build time with -ldflags "-X .../health.Version=..."
var Version = "dev"

const probeTimeout = 3 * time.Second

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Checker serves liveness and readiness probes
type Checker struct {
	checks      map[string]CheckFunc
	ready       atomic.Bool
	startupTime time.Time
}

// NewChecker probes postgres and redis. Both are required: scans live in
// postgres and visitor bindings in redis.
func NewChecker(db *gorm.DB, rdb *redis.Client) *Checker {
	c := &Checker{checks: map[string]CheckFunc{}, startupTime: time.Now()}
	c.Add("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	c.Add("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return c
}

// Add registers an extra dependency probe
func (c *Checker) Add(name string, fn CheckFunc) {
	c.checks[name] = fn
}

// SetReady marks the service as ready
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

func (c *Checker) IsReady() bool {
	return c.ready.Load()
}

// CheckStatus contains detailed health status
type CheckStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check is the result of one probe
type Check struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Run executes every probe and reports whether all passed.
func (c *Checker) Run(ctx context.Context) (map[string]Check, bool) {
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]Check, len(names))
	healthy := true
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		start := time.Now()
		err := c.checks[name](probeCtx)
		cancel()

		check := Check{Status: "healthy", Duration: time.Since(start).String()}
		if err != nil {
			check = Check{Status: "unhealthy", Message: err.Error()}
			healthy = false
		}
		results[name] = check
	}
	return results, healthy
}

func (c *Checker) status(name string, checks map[string]Check) CheckStatus {
	return CheckStatus{
		Status:    name,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(c.startupTime).Round(time.Second).String(),
		Version:   Version,
		Checks:    checks,
	}
}

// Healthz handles the liveness probe: the process is up.
func (c *Checker) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// Readyz handles the readiness probe: startup finished and dependencies answer.
func (c *Checker) Readyz(ctx *gin.Context) {
	if !c.IsReady() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"timestamp": time.Now().UTC(),
			"message":   "service is starting up",
		})
		return
	}

	checks, healthy := c.Run(ctx.Request.Context())
	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, c.status("degraded", checks))
		return
	}
	ctx.JSON(http.StatusOK, c.status("ready", checks))
}

// Health reports every probe regardless of readiness.
func (c *Checker) Health(ctx *gin.Context) {
	checks, healthy := c.Run(ctx.Request.Context())
	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, c.status("unhealthy", checks))
		return
	}
	ctx.JSON(http.StatusOK, c.status("healthy", checks))
}

// RegisterRoutes registers health check routes
func (c *Checker) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", c.Healthz)
	r.GET("/readyz", c.Readyz)
	r.GET("/health", c.Health)
}
