package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// RateLimitInfo is the state reported in the X-RateLimit-* headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type window struct {
	remaining int
	reset     time.Time
}

// WindowLimiter allows limit requests per key in each fixed window.  Expired
// windows are swept every cleanup interval.
type WindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	stop    chan struct{}
	once    sync.Once
}

func NewWindowLimiter(limit int, per time.Duration, cleanup time.Duration) *WindowLimiter {
	l := &WindowLimiter{
		limit:   limit,
		window:  per,
		now:     time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	if cleanup > 0 {
		go l.cleanupLoop(cleanup)
	}
	return l
}

// Allow consumes one request for key.
func (l *WindowLimiter) Allow(key string) (bool, RateLimitInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.reset) {
		w = &window{remaining: l.limit, reset: now.Add(l.window)}
		l.windows[key] = w
	}
	if w.remaining <= 0 {
		return false, RateLimitInfo{Limit: l.limit, Remaining: 0, ResetAt: w.reset}
	}
	w.remaining--
	return true, RateLimitInfo{Limit: l.limit, Remaining: w.remaining, ResetAt: w.reset}
}

func (l *WindowLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *WindowLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, w := range l.windows {
		if now.After(w.reset) {
			delete(l.windows, k)
		}
	}
}

// Len returns the number of tracked keys.
func (l *WindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the cleanup goroutine.  It is safe to call more than once.
func (l *WindowLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// RateLimitByIP rejects clients that exceed the limiter's budget with 429.
func RateLimitByIP(l *WindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, info := l.Allow(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

		if !allowed {
			retry := int(time.Until(info.ResetAt).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please retry later",
				"code":  errors.ErrCodeTooManyRequests.String(),
			})
			return
		}
		c.Next()
	}
}
