package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter

	mu   sync.Mutex
	last time.Time
}

func (v *visitor) touch() {
	v.mu.Lock()
	v.last = time.Now()
	v.mu.Unlock()
}

func (v *visitor) idle(ttl time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return time.Since(v.last) > ttl
}

// NewRateLimitPerIP caps request rate per client IP with an LRU cache of
// token-bucket limiters. Entries idle longer than ttl are swept periodically;
// the returned stop function ends the sweeper.
func NewRateLimitPerIP(limit, burst, cacheSize int, ttl time.Duration) (gin.HandlerFunc, func()) {
	visitors, _ := lru.New[string, *visitor](cacheSize)
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				for _, key := range visitors.Keys() {
					if v, ok := visitors.Peek(key); ok && v.idle(ttl) {
						visitors.Remove(key)
					}
				}
			}
		}
	}()

	handler := func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}

		v, ok := visitors.Get(host)
		if !ok {
			v = &visitor{
				limiter: rate.NewLimiter(rate.Limit(limit), burst),
			}
			visitors.Add(host, v)
		}
		v.touch()

		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
			return
		}
		c.Next()
	}

	return handler, func() { close(stop) }
}
