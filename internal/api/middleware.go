package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- Service-key cache (stale-while-revalidate) ---

type cacheEntry struct {
	keyName    string
	expiresAt  time.Time
	refreshing atomic.Bool
}

type keyCache struct {
	store sync.Map // map[string]*cacheEntry (keyed by full service key)
	ttl   time.Duration
}

func newKeyCache(ttl time.Duration) *keyCache {
	return &keyCache{ttl: ttl}
}

func (c *keyCache) get(key string) (name string, hit bool, needsRefresh bool) {
	v, ok := c.store.Load(key)
	if !ok {
		return "", false, false
	}
	entry := v.(*cacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return entry.keyName, true, false // fresh
	}
	// Stale: serve it, but let exactly one goroutine refresh.
	needsRefresh = entry.refreshing.CompareAndSwap(false, true)
	return entry.keyName, true, needsRefresh
}

func (c *keyCache) set(key, name string) {
	c.store.Store(key, &cacheEntry{
		keyName:   name,
		expiresAt: time.Now().Add(c.ttl),
	})
}

func (c *keyCache) delete(key string) {
	c.store.Delete(key)
}

// --- Auth middleware ---

// authMiddleware validates Bearer rsk_ service keys against the static
// key (if configured) or the service_keys table, with a TTL cache so the
// bcrypt verify stays off the hot path.
func (d *Dependencies) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	cache := newKeyCache(d.CacheTTL)

	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Missing or invalid Authorization header"})
			return
		}
		if len(token) < 8 || !strings.HasPrefix(token, "rsk_") {
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Invalid service key format"})
			return
		}

		if d.StaticKey != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(d.StaticKey)) == 1 {
			next(w, r)
			return
		}

		name, hit, needsRefresh := cache.get(token)
		if hit && needsRefresh {
			go d.refreshKey(cache, token)
		}
		if hit && name != "" {
			next(w, r)
			return
		}

		name, err := d.authenticateKey(r.Context(), token)
		if err != nil {
			d.Logger.Warn("auth failed", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Invalid service key"})
			return
		}

		cache.set(token, name)
		next(w, r)
	}
}

// authenticateKey validates a service key against Postgres.
func (d *Dependencies) authenticateKey(ctx context.Context, token string) (string, error) {
	if d.Store == nil {
		return "", fmt.Errorf("no key store configured")
	}
	key, err := d.Store.LookupKeyByPrefix(ctx, token[:8])
	if err != nil {
		return "", err
	}
	if key == nil {
		return "", fmt.Errorf("service key not found for prefix")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(token)); err != nil {
		return "", err
	}
	return key.Name, nil
}

// refreshKey refreshes a stale cache entry in the background.
func (d *Dependencies) refreshKey(cache *keyCache, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	name, err := d.authenticateKey(ctx, token)
	if err != nil {
		// Evict so the next request takes the synchronous lookup;
		// otherwise the stale entry would be served forever with its
		// refreshing flag stuck.
		d.Logger.Warn("background key refresh failed, evicting cache entry", zap.Error(err))
		cache.delete(token)
		return
	}
	cache.set(token, name)
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}

// --- JSON helpers ---

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// readJSON decodes a JSON request body into the given pointer.
func readJSON(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Request logging ---

func requestLogging(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// --- CORS ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
