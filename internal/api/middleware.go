package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dealscout/dealscout/internal/discovery"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	viewerKey
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID reuses an inbound X-Request-ID or mints a uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the request id stored by the request id middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// HTTPObserver receives one call per served request.
type HTTPObserver interface {
	ObserveHTTP(route, method string, code int, d time.Duration)
}

// accessLog logs every request and reports it to obs when set.
func accessLog(obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			if obs != nil {
				obs.ObserveHTTP(route, r.Method, status, elapsed)
			}

			log := zap.L().Info
			if status >= http.StatusInternalServerError {
				log = zap.L().Warn
			}
			log("http request",
				zap.String("component", "api"),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
				zap.String("request_id", RequestIDFrom(r.Context())),
			)
		})
	}
}

// clientLimiter hands out one token bucket per client address. Buckets idle
// for longer than idleTTL are dropped on the next sweep.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	swept   time.Time
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > l.idleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idleTTL {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// viewerAuth resolves the caller into a discovery.Viewer. A missing,
// malformed, expired or wrongly signed bearer token yields the anonymous
// viewer; discovery is a public endpoint.
type viewerAuth struct {
	secret []byte
	parser *jwt.Parser
}

func newViewerAuth(secret, issuer string) *viewerAuth {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &viewerAuth{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

func (a *viewerAuth) resolve(r *http.Request) discovery.Viewer {
	if len(a.secret) == 0 {
		return discovery.Anonymous()
	}
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return discovery.Anonymous()
	}

	var claims jwt.RegisteredClaims
	_, err := a.parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		zap.L().Debug("api: ignoring invalid bearer token",
			zap.String("component", "api"),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		return discovery.Anonymous()
	}
	return discovery.User(claims.Subject)
}

func (a *viewerAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), viewerKey, a.resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ViewerFrom returns the viewer resolved for the request, anonymous when
// none was stored.
func ViewerFrom(ctx context.Context) discovery.Viewer {
	v, _ := ctx.Value(viewerKey).(discovery.Viewer)
	return v
}
