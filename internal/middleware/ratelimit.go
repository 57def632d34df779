package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"videotube/internal/metrics"
)

// authPaths are throttled with the stricter auth budget.
var authPaths = []string{
	"/api/v1/users/login",
	"/api/v1/users/register",
	"/api/v1/users/refresh-token",
	"/api/v1/users/change-password",
}

// SharedLimiter counts hits across server instances.
type SharedLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies per-client token buckets. When a SharedLimiter
// is configured, auth paths are counted there instead so the budget holds
// across replicas; if it fails, the local bucket is used.
type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int
	shared     SharedLimiter
	clientIPs  *ClientIPResolver
	metrics    *metrics.Recorder
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

// NewRateLimitMiddleware keys buckets by the address clientIPs resolves; a
// nil resolver trusts no proxy.
func NewRateLimitMiddleware(generalRPM int, authRPM int, shared SharedLimiter, clientIPs *ClientIPResolver, recorder *metrics.Recorder) *RateLimitMiddleware {
	if generalRPM <= 0 {
		generalRPM = 100
	}
	if authRPM <= 0 {
		authRPM = 10
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		shared:     shared,
		clientIPs:  clientIPs,
		metrics:    recorder,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := m.clientIPs.ClientIP(r)
		isAuth := isAuthPath(r.URL.Path)

		limiterName := "general"
		if isAuth {
			limiterName = "auth"
		}

		if !m.allow(r.Context(), clientIP, isAuth) {
			m.metrics.RateLimited(limiterName)
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) allow(ctx context.Context, clientIP string, isAuth bool) bool {
	if isAuth && m.shared != nil {
		allowed, err := m.shared.Allow(ctx, "auth:"+clientIP, m.authRPM, time.Minute)
		if err == nil {
			return allowed
		}
		slog.Warn("shared rate limiter unavailable, using local limiter", "error", err)
	}

	limiter := m.getLimiter(clientIP)
	if isAuth {
		return limiter.auth.Allow()
	}
	return limiter.general.Allow()
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	general := rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM)
	auth := rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM)
	created := &clientLimiter{general: general, auth: auth, lastSeen: time.Now()}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

func isAuthPath(path string) bool {
	path = strings.TrimRight(strings.ToLower(path), "/")
	for _, candidate := range authPaths {
		if path == candidate {
			return true
		}
	}
	return false
}

// windowKey buckets hits into fixed windows aligned to the epoch.
func windowKey(prefix string, key string, window time.Duration, now time.Time) string {
	bucket := now.UnixNano() / int64(window)
	return prefix + key + ":" + strconv.FormatInt(bucket, 10)
}
