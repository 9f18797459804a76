package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("handler")

// ChatProcessor handles one conversation turn. It never fails; every
// error path inside the engine degrades into a well-formed reply.
type ChatProcessor interface {
	ProcessMessage(ctx context.Context, req *domain.ChatRequest, origin string) *domain.ChatResponse
}

// ModelLister exposes the models available on the generative backend.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Pinger is one dependency checked by the health endpoint.
type Pinger struct {
	Name string
	Ping func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(chat ChatProcessor, models ModelLister, pingers []Pinger, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/healthz", healthzHandler(pingers, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat/message", chatMessageHandler(chat, logger))
		r.Get("/metrics/chat", chatMetricsHandler(metrics))
		if models != nil {
			r.Get("/models", listModelsHandler(models, logger))
		}
	})

	return r
}

// healthzHandler pings every dependency concurrently and reports the
// aggregate status. The endpoint itself always answers 200; consumers
// read the status field.
func healthzHandler(pingers []Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		services := make([]domain.ServiceHealth, len(pingers)+1)
		services[0] = domain.ServiceHealth{Name: "tirebot-api", Status: "healthy"}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for i, p := range pingers {
			i, p := i, p
			g.Go(func() error {
				start := time.Now()
				err := p.Ping(gctx)
				status := "healthy"
				if err != nil {
					status = "degraded"
					logger.Warn("health check failed", zap.String("service", p.Name), zap.Error(err))
				}
				mu.Lock()
				services[i+1] = domain.ServiceHealth{
					Name:      p.Name,
					Status:    status,
					LatencyMs: time.Since(start).Milliseconds(),
				}
				mu.Unlock()
				return nil
			})
		}
		g.Wait()

		overall := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func chatMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetChatSnapshot())
	}
}

func listModelsHandler(models ModelLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/models")
		defer span.End()

		names, err := models.ListModels(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": names})
	}
}
