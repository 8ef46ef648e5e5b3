// Package gateway exposes the daemon's HTTP surface: capacity and status
// reads, and a reverse proxy to the inference backend that only admits
// traffic while the GPU is idle and the backend is live.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sentineld/internal/gpu"
	"sentineld/pkg/types"
)

// Service is the arbiter surface the gateway reads on every request.
type Service interface {
	Status() types.StatusResponse
}

const capacityProbeTimeout = 5 * time.Second

// Gateway serves the HTTP API in front of the inference backend.
type Gateway struct {
	svc        Service
	backendURL string
	client     *http.Client
	log        zerolog.Logger
}

// New constructs a Gateway proxying to backendURL. The shared client carries
// no global timeout; every upstream call gets a context deadline instead, so
// open-ended token streams are not cut off mid-response.
func New(svc Service, backendURL string, log zerolog.Logger) *Gateway {
	return &Gateway{
		svc:        svc,
		backendURL: backendURL,
		client:     &http.Client{Timeout: 0},
		log:        log,
	}
}

// Router builds the chi handler tree.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOriginsOrWildcard(),
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/capacity", g.handleCapacity)
	r.Get("/status", g.handleStatus)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/v1/*", g.handleProxy)
	r.Post("/v1/*", g.handleProxy)
	r.Delete("/v1/*", g.handleProxy)

	MountSwagger(r)
	return r
}

// accepting decides admission: forward only when the arbitration state is
// exactly idle and the backend is observed live.
func accepting(status types.StatusResponse) (bool, string) {
	if status.State != "idle" {
		return false, "arbitration state is " + status.State
	}
	if !status.InferenceRunning {
		return false, status.InferenceService + " is not running"
	}
	return true, ""
}

// handleCapacity reports node identity, admission, GPU/VRAM stats, loaded
// models and the current session picture.
//
// @Summary  Node capacity
// @Produce  json
// @Success  200 {object} types.CapacityResponse
// @Router   /capacity [get]
func (g *Gateway) handleCapacity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), capacityProbeTimeout)
	defer cancel()

	status := g.svc.Status()
	ok, reason := accepting(status)
	host, _ := os.Hostname()
	resp := types.CapacityResponse{
		Node:              host,
		AcceptingRequests: ok,
		UnavailableReason: reason,
		State:             status.State,
		GPU:               gpu.Info(ctx),
		LoadedModels:      gpu.LoadedModels(ctx, g.client, g.backendURL),
		Sessions:          status.Sessions,
		OwnerUser:         status.OwnerUser,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus returns the full daemon snapshot, same shape as the control
// protocol's status reply.
//
// @Summary  Daemon status
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /status [get]
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.svc.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
