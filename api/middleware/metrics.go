package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-catalog/pkg/metrics"
)

// Metrics labels by chi route pattern rather than raw path so ids do not
// become label values.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := wrapWriter(w, r)
			start := time.Now()
			next.ServeHTTP(ww, r)
			m.Observe(r.Method, routePattern(r), writtenStatus(ww), time.Since(start))
		})
	}
}
