package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterBurst       = 5
	limiterIdleExpiry  = 5 * time.Minute
	limiterSweepPeriod = time.Minute
)

// throttle enforces a per-client request budget. Buckets are keyed by the
// client IP and evicted after sitting idle, so the map stays bounded by the
// set of recently active clients.
type throttle struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	perSec  rate.Limit
	log     *zap.Logger
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newThrottle(perMinute int, log *zap.Logger) *throttle {
	t := &throttle{
		clients: make(map[string]*clientBucket),
		perSec:  rate.Limit(float64(perMinute) / 60.0),
		log:     log,
	}
	go t.sweep()
	return t
}

func (t *throttle) allow(ip string) bool {
	t.mu.Lock()
	b, ok := t.clients[ip]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(t.perSec, limiterBurst)}
		t.clients[ip] = b
	}
	b.lastSeen = time.Now()
	lim := b.lim
	t.mu.Unlock()
	return lim.Allow()
}

func (t *throttle) sweep() {
	ticker := time.NewTicker(limiterSweepPeriod)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleExpiry)
		t.mu.Lock()
		for ip, b := range t.clients {
			if b.lastSeen.Before(cutoff) {
				delete(t.clients, ip)
			}
		}
		t.mu.Unlock()
	}
}

func (t *throttle) handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if !t.allow(ip) {
			t.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Path()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
