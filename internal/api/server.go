// Package api serves discovery, facet catalogs and manual deal transitions
// over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dealscout/dealscout/internal/discovery"
	"github.com/dealscout/dealscout/internal/model"
)

// Discoverer runs searches and serves facet catalogs.
type Discoverer interface {
	Search(ctx context.Context, q discovery.Query, viewer discovery.Viewer) (*discovery.Response, error)
	ListFacets(ctx context.Context, kind model.FacetKind) ([]model.Facet, error)
}

// DealTransitioner applies manual deal status changes.
type DealTransitioner interface {
	TransitionDeal(ctx context.Context, dealID int64, to model.DealStatus) (model.DealStatus, error)
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimitRPS   float64 // <= 0 disables rate limiting
	RateLimitBurst int
	AdminToken     string // guards deal transitions when set
	JWTSecret      string // empty makes every caller anonymous
	JWTIssuer      string
	DefaultLimit   int

	Observer       HTTPObserver
	MetricsHandler http.Handler
}

// Server holds the handlers' dependencies.
type Server struct {
	discovery Discoverer
	deals     DealTransitioner
	opts      Options
}

// NewServer creates a Server.
func NewServer(disc Discoverer, deals DealTransitioner, opts Options) *Server {
	return &Server{discovery: disc, deals: deals, opts: opts}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(s.opts.Observer))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		if s.opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
		}
		if s.opts.RateLimitRPS > 0 {
			r.Use(newClientLimiter(s.opts.RateLimitRPS, s.opts.RateLimitBurst).middleware)
		}
		r.Use(newViewerAuth(s.opts.JWTSecret, s.opts.JWTIssuer).middleware)

		r.Get("/discover", s.handleDiscover)
		r.Get("/cuisines", s.handleFacets(model.FacetCuisine))
		r.Get("/dietary-preferences", s.handleFacets(model.FacetDietary))
		r.Post("/deals/{id}/status", s.handleDealStatus)
	})

	return r
}
