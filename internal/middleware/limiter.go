package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"bijouterie-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate limit tiers. Auth and webhook endpoints are strict; the storefront
// catalog is browsed heavily and gets more headroom.
const (
	limitStrict = rate.Limit(2)
	burstStrict = 5

	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	limitCatalog = rate.Limit(20)
	burstCatalog = 40
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

func init() {
	go cleanupVisitors()
}

func getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for k, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, k)
			}
		}
		mu.Unlock()
	}
}

// RateLimitMiddleware buckets requests per identity and tier.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		var identity string
		if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
			identity = "user:" + userID
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		key := fmt.Sprintf("%s:%s", identity, tier)

		limiter := getVisitor(key, limit, burst)
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	path := r.URL.Path

	if strings.HasPrefix(path, "/auth/") || strings.HasPrefix(path, "/webhooks/") {
		return limitStrict, burstStrict, "strict"
	}

	if r.Method == http.MethodGet &&
		(strings.HasPrefix(path, "/products") || strings.HasPrefix(path, "/categories")) {
		return limitCatalog, burstCatalog, "catalog"
	}

	return limitGeneral, burstGeneral, "general"
}
