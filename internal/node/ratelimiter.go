package node

import (
	"math"
	"net/http"
	"strconv"
	"time"

	rpc "github.com/gorilla/rpc/v2/json2"
	"golang.org/x/time/rate"
)

// rateLimiter admits a request or reports how long the client should back off.
type rateLimiter interface {
	Take() (ok bool, retryAfter time.Duration)
}

type tokenBucket struct {
	limiter *rate.Limiter
}

// newTokenBucketLimiter returns nil when ratePerSecond is not positive, which
// disables limiting.
func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Take reserves a token and gives it back when it is not available yet, so
// rejected requests do not push later ones further out.
func (b *tokenBucket) Take() (bool, time.Duration) {
	r := b.limiter.Reserve()
	if !r.OK() {
		return false, 0
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay
	}
	return true, 0
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := limiter.Take()
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
		writeJSON(w, http.StatusTooManyRequests, errorEnvelope(nil, rpc.E_SERVER, "rate limit exceeded, please retry shortly"))
	})
}

// retryAfterSeconds rounds up to whole seconds, the unit Retry-After carries.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
