package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/HodayaSing/ai-pos/internal/common"
)

// Handler enforces a limit per request key. Backend failures let the request
// through and are reported to OnError.
type Handler struct {
	Backend Backend
	Key     func(*http.Request) string
	Window  time.Duration
	Max     int
	OnError func(error)
}

// ByClientIP keys requests by client address under a scope. IPv6 callers
// share their /64.
func ByClientIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + common.ClientNetwork(r)
	}
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Backend == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		res, err := h.Backend.Allow(r.Context(), h.Key(r), h.Window, h.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(res.Limit, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
		if !res.Allowed {
			retry := int(time.Until(res.Reset).Seconds())
			headers.Set("Retry-After", strconv.Itoa(max(retry, 0)))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
