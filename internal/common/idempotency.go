package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem rejects replays of cart writes and checkouts carrying the same
// Idempotency-Key. The key is scoped to method and path so reusing one key
// across endpoints does not block unrelated requests.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func (i Idem) redisKey(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "\n" + r.Header.Get("Idempotency-Key")))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces at-most-once semantics for requests that opt in with
// an Idempotency-Key header. Requests without the header pass through.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.R == nil || r.Header.Get("Idempotency-Key") == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := i.redisKey(r)
		claimed, err := i.R.SetNX(r.Context(), key, "claimed", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// Re-arm the TTL so a panic inside the handler cannot pin the key.
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
