package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cliphive/cliphive-backend/api/controllers"
	"github.com/cliphive/cliphive-backend/api/middleware"
	"github.com/cliphive/cliphive-backend/internal/pipeline"
	"github.com/cliphive/cliphive-backend/internal/records"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Registry   *pipeline.Registry
	AssetsRepo *records.Repository
	Pingers    map[string]controllers.Pinger
	Gatherer   prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", controllers.UploadCreate(deps.Registry, cfg.Media, logg))
			r.Get("/{uploadId}", controllers.UploadResult(deps.Registry, logg))
			r.Get("/{uploadId}/progress", controllers.UploadProgress(deps.Registry, logg))
			r.Post("/{uploadId}/reset", controllers.UploadReset(deps.Registry, logg))
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", controllers.AssetList(deps.AssetsRepo, logg))
			r.Get("/{assetId}", controllers.AssetGet(deps.AssetsRepo, logg))
		})
	})

	return r
}
