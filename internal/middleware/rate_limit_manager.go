package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	generalIdleTimeout   = 3 * time.Minute
	redemptionIdleWindow = 15 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitManager owns per-client limiters and evicts idle ones in the
// background until Shutdown is called.
type RateLimitManager struct {
	visitors      map[string]*visitor
	visitorsMu    sync.Mutex
	redemptions   map[string]*visitor
	redemptionsMu sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors:    make(map[string]*visitor),
		redemptions: make(map[string]*visitor),
		ctx:         managerCtx,
		cancel:      cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// GetVisitor returns the general limiter for ip, or nil when limiting is off.
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow int, windowSeconds int, burst int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}

	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()
	return lookupLimiter(m.visitors, ip, requestsPerWindow, windowSeconds, burst)
}

// GetRedemptionLimiter returns the limiter guarding activation code guesses
// for a single account.
func (m *RateLimitManager) GetRedemptionLimiter(key string, attemptsPerWindow int, windowSeconds int) *rate.Limiter {
	if attemptsPerWindow <= 0 {
		return nil
	}

	m.redemptionsMu.Lock()
	defer m.redemptionsMu.Unlock()
	return lookupLimiter(m.redemptions, key, attemptsPerWindow, windowSeconds, attemptsPerWindow)
}

func lookupLimiter(visitors map[string]*visitor, key string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	if v, ok := visitors[key]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}

	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	limit := rate.Limit(float64(requestsPerWindow) / float64(windowSeconds))
	limiter := rate.NewLimiter(limit, burst)
	visitors[key] = &visitor{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(time.Now())
		}
	}
}

func (m *RateLimitManager) cleanup(now time.Time) {
	m.visitorsMu.Lock()
	evictIdle(m.visitors, now, generalIdleTimeout)
	m.visitorsMu.Unlock()

	m.redemptionsMu.Lock()
	evictIdle(m.redemptions, now, redemptionIdleWindow)
	m.redemptionsMu.Unlock()
}

func evictIdle(visitors map[string]*visitor, now time.Time, idle time.Duration) {
	for key, v := range visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(visitors, key)
		}
	}
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
