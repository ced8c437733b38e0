// Package ratelim throttles abusable endpoints with a token bucket per
// client IP. State is in-process only; behind multiple replicas each one
// enforces its own budget.
package ratelim

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"

	"wayfare/utils"
)

const (
	requestsPerSecond = 5
	burst             = 10
	staleAfter        = 10 * time.Minute
	sweepEvery        = time.Minute
)

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one bucket per IP and reclaims buckets that have
// gone quiet.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{visitors: make(map[string]*visitor)}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(requestsPerSecond, burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.bucket.Allow()
}

func (rl *RateLimiter) sweep() {
	for range time.Tick(sweepEvery) {
		cutoff := time.Now().Add(-staleAfter)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Limit rejects requests over the per-IP budget with 429 before the handler
// runs.
func (rl *RateLimiter) Limit(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.allow(ip) {
			utils.RespondWithJSON(w, http.StatusTooManyRequests, utils.M{
				"status":  "fail",
				"message": "Too many requests from this IP, please try again later!",
			})
			return
		}
		next(w, r, ps)
	}
}
