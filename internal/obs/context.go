package obs

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type requestInfoKey struct{}

// RequestInfo is shared by the observability middlewares of a single request.
// Route and Language are only known once chi has matched the request.
type RequestInfo struct {
	Route    string
	Language string
}

// WithRequestInfo attaches info to ctx.
func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the request info stored on ctx, or nil.
func RequestInfoFrom(ctx context.Context) *RequestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}

// RequestInfoMiddleware must run before the tracing, metrics and logging
// middlewares so they share one RequestInfo for the request.
func RequestInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestInfoFrom(r.Context()) == nil {
			r = r.WithContext(WithRequestInfo(r.Context(), &RequestInfo{}))
		}
		next.ServeHTTP(w, r)
	})
}

// resolveInfo fills the route and language from chi's routing state once the
// handler has run. It never returns nil.
func resolveInfo(r *http.Request) *RequestInfo {
	info := RequestInfoFrom(r.Context())
	if info == nil {
		info = &RequestInfo{}
	}
	if info.Route == "" {
		if rc := chi.RouteContext(r.Context()); rc != nil {
			info.Route = rc.RoutePattern()
		}
	}
	if info.Language == "" {
		info.Language = requestLanguage(r)
	}
	return info
}

// routeOf resolves the route label for r. fallback is used for unmatched paths.
func routeOf(r *http.Request, fallback string) string {
	if route := resolveInfo(r).Route; route != "" {
		return route
	}
	return fallback
}

func requestLanguage(r *http.Request) string {
	if lang := chi.URLParam(r, "language"); lang != "" {
		return strings.ToLower(lang)
	}
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get("language")))
}
