package sword

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a client's limiter is kept after its last
// request.
const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter limits requests per client IP. A nil RateLimiter
// allows everything.
type RateLimiter struct {
	limit       rate.Limit
	burst       int
	mutex       sync.Mutex
	clients     map[string]*clientLimiter
	lastCleanup time.Time
}

// NewRateLimiter allows each client requestsPerMinute requests per
// minute, with bursts of the same size. Returns nil if
// requestsPerMinute is not positive.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:       rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:       requestsPerMinute,
		clients:     make(map[string]*clientLimiter),
		lastCleanup: time.Now(),
	}
}

// Allow returns true if the client at ip may make a request now.
func (limiter *RateLimiter) Allow(ip string) bool {
	if limiter == nil {
		return true
	}
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	now := time.Now()
	if now.Sub(limiter.lastCleanup) > limiterIdle {
		for clientIp, client := range limiter.clients {
			if now.Sub(client.lastAccess) > limiterIdle {
				delete(limiter.clients, clientIp)
			}
		}
		limiter.lastCleanup = now
	}
	client, ok := limiter.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.clients[ip] = client
	}
	client.lastAccess = now
	return client.limiter.AllowN(now, 1)
}

// Clients returns the number of clients being tracked.
func (limiter *RateLimiter) Clients() int {
	if limiter == nil {
		return 0
	}
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return len(limiter.clients)
}
