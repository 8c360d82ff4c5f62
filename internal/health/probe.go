package health

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CheckResult struct {
	Name       string  `json:"name"`
	Healthy    bool    `json:"healthy"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner runs every checker concurrently under one deadline. Results are
// reused for cacheTTL so a burst of readiness probes costs one round of pings.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker

	mu       sync.Mutex
	cachedAt time.Time
	cached   []CheckResult
	ready    bool
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if p.cacheTTL > 0 {
		p.mu.Lock()
		if !p.cachedAt.IsZero() && time.Since(p.cachedAt) < p.cacheTTL {
			ready, results := p.ready, append([]CheckResult(nil), p.cached...)
			p.mu.Unlock()
			return ready, results
		}
		p.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]CheckResult, len(p.checkers))
	var g errgroup.Group
	for i, c := range p.checkers {
		g.Go(func() error {
			start := time.Now()
			res := c.Check(ctx)
			res.DurationMS = float64(time.Since(start).Microseconds()) / 1000
			outcome := "healthy"
			if !res.Healthy {
				outcome = "unhealthy"
			}
			observability.RecordReadinessProbe(ctx, res.Name, outcome, res.DurationMS)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, res := range results {
		if !res.Healthy {
			ready = false
			break
		}
	}
	if p.cacheTTL > 0 {
		p.mu.Lock()
		p.cachedAt, p.cached, p.ready = time.Now(), results, ready
		p.mu.Unlock()
	}
	return ready, results
}

type RedisChecker struct {
	Client redis.UniversalClient
}

func (c RedisChecker) Check(ctx context.Context) CheckResult {
	if c.Client == nil {
		return CheckResult{Name: "redis", Healthy: false, Error: "redis client not configured"}
	}
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return CheckResult{Name: "redis", Healthy: false, Error: err.Error()}
	}
	return CheckResult{Name: "redis", Healthy: true}
}

type DBChecker struct {
	DB *gorm.DB
}

func (c DBChecker) Check(ctx context.Context) CheckResult {
	if c.DB == nil {
		return CheckResult{Name: "db", Healthy: false, Error: "database not configured"}
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return CheckResult{Name: "db", Healthy: false, Error: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return CheckResult{Name: "db", Healthy: false, Error: err.Error()}
	}
	return CheckResult{Name: "db", Healthy: true}
}
