package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cliphive/cliphive-backend/api/controllers"
	"github.com/cliphive/cliphive-backend/internal/acquire"
	"github.com/cliphive/cliphive-backend/internal/pipeline"
	pkgauth "github.com/cliphive/cliphive-backend/pkg/auth"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "development", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "cliphive", ExpirationMinutes: 60},
	}
}

func testRouter(pingers map[string]controllers.Pinger) http.Handler {
	registry := pipeline.NewRegistry(func(acq acquire.Acquirer) *pipeline.Pipeline {
		return pipeline.New(pipeline.Deps{Acquirer: acq})
	})
	reg := prometheus.NewRegistry()
	metrics.NewPipelineMetrics(reg)

	return NewRouter(testConfig(), nil, Deps{
		Registry: registry,
		Pingers:  pingers,
		Gatherer: reg,
	})
}

func TestHealthLive(t *testing.T) {
	router := testRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Cliphive-Env") != "development" {
		t.Fatal("expected env header on health response")
	}
}

func TestHealthReadyReportsDependencies(t *testing.T) {
	router := testRouter(map[string]controllers.Pinger{
		"db":       stubPinger{},
		"objstore": stubPinger{},
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHealthReadyFailsOnDeadDependency(t *testing.T) {
	router := testRouter(map[string]controllers.Pinger{
		"db": stubPinger{err: fmt.Errorf("connection refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := testRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "upload_record_promote_failures_total") {
		t.Fatal("expected pipeline metrics in scrape output")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := testRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+uuid.NewString()+"/progress", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestProtectedRoutesAcceptValidToken(t *testing.T) {
	cfg := testConfig()
	router := testRouter(nil)

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+uuid.NewString()+"/progress", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	// authenticated but the upload does not exist
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", resp.Code, resp.Body.String())
	}
}
