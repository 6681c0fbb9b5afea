package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/cliphive/cliphive-backend/api/responses"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

const envHeader = "X-Cliphive-Env"

// Pinger is the probe surface a dependency exposes for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the wired dependencies. A nil pinger means the
// dependency is disabled and reads as healthy.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				status[name] = "disabled"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				status[name] = "unreachable"
				healthy = false
				if logg != nil {
					lctx := logg.WithField(ctx, "dependency", name)
					logg.Warn(lctx, "readiness probe failed")
				}
				continue
			}
			status[name] = "ok"
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
