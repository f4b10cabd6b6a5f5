package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hemolink/hemolink-backend/pkg/clientip"
)

// Donor registration rate limit: per-IP token bucket, 6/min with burst 3.
// Registrations are rarer than searches, so a tight bucket is enough; the
// upsert semantics mean repeats are harmless but still shouldn't be spammed.

const (
	registerRPS        = 0.1 // 6/min
	registerBurst      = 3
	registerCleanupMin = 5 * time.Minute
	registerLimiterTTL = 30 * time.Minute
)

type registerLimiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

var (
	registerEntries   = make(map[string]*registerLimiterEntry)
	registerEntriesMu sync.Mutex
	registerCleanup   bool
)

func getRegisterLimiter(ip string) *rate.Limiter {
	registerEntriesMu.Lock()
	defer registerEntriesMu.Unlock()
	startRegisterCleanupOnce()

	e, ok := registerEntries[ip]
	if !ok {
		e = &registerLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(registerRPS), registerBurst),
			lastUse: time.Now(),
		}
		registerEntries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startRegisterCleanupOnce() {
	if registerCleanup {
		return
	}
	registerCleanup = true
	go func() {
		ticker := time.NewTicker(registerCleanupMin)
		defer ticker.Stop()
		for range ticker.C {
			registerEntriesMu.Lock()
			now := time.Now()
			for k, e := range registerEntries {
				if now.Sub(e.lastUse) > registerLimiterTTL {
					delete(registerEntries, k)
				}
			}
			registerEntriesMu.Unlock()
		}
	}()
}

// RegistrationRateLimit throttles donor registrations per IP. Returns 429
// when the bucket is empty.
func RegistrationRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := getRegisterLimiter(clientip.FromRequest(r))
		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many registrations from this address. Please slow down."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
