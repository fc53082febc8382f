package http

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Submission throttling: roughly 5 attempts per minute per client, matching
// the sliding window the web client enforces on its side.
const (
	rateLimitRPS   = 5.0 / 60.0
	rateLimitBurst = 5
)

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rps:      r,
		burst:    b,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = limiter
	}
	return limiter
}

// Sweep drops visitors whose buckets have refilled, so the map does not grow
// without bound.
func (rl *IPRateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if v.Tokens() >= float64(rl.burst) {
			delete(rl.visitors, ip)
		}
	}
}

// RateLimitMiddleware throttles submission endpoints per client IP.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Too many requests. Please wait."})
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevents clickjacking
		c.Header("X-Frame-Options", "DENY")
		// Prevents MIME-type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		csp := "default-src 'self';"
		csp += " img-src 'self' data:;"
		csp += " style-src 'self' 'unsafe-inline';"
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}

// UploadsCORSMiddleware makes stored images readable cross-origin so the web
// client can embed them regardless of where it is hosted.
func UploadsCORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET")
		c.Header("Cross-Origin-Resource-Policy", "cross-origin")
		c.Next()
	}
}
