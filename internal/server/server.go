package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmartin-dev/musiccast-hub-go/internal/api"
	"github.com/jmartin-dev/musiccast-hub-go/internal/ingress"
	"github.com/jmartin-dev/musiccast-hub-go/internal/registry"
	"github.com/jmartin-dev/musiccast-hub-go/internal/ssdp"
	"github.com/jmartin-dev/musiccast-hub-go/internal/supervisor"
	"github.com/jmartin-dev/musiccast-hub-go/internal/wshub"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Deps are the collaborators the HTTP surface dispatches into.
type Deps struct {
	Registry   *registry.Registry
	Bus        *registry.Bus
	Directory  *ingress.Directory
	Supervisor *supervisor.Supervisor
	SSDP       *ssdp.Listener
	UpnpPath   string
}

// NewHandler builds the process's HTTP handler: the control-plane REST
// surface, the websocket pubsub bridge, and the UPnP GENA callback route.
func NewHandler(deps Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)

	registerHealthRoutes(router)

	h := &routes{deps: deps}
	router.Method(http.MethodPost, "/v1/discover", api.Handler(h.discover))
	router.Method(http.MethodPost, "/v1/devices", api.Handler(h.addDevice))
	router.Method(http.MethodGet, "/v1/devices", api.Handler(h.listDevices))
	router.Method(http.MethodGet, "/v1/devices/{deviceID}", api.Handler(h.whereis))
	router.Method(http.MethodGet, "/v1/devices/{deviceID}/state", api.Handler(h.lookupState))
	router.Method(http.MethodGet, "/v1/devices/{deviceID}/state/{key}", api.Handler(h.lookupStateKey))
	router.Method(http.MethodPost, "/v1/devices/{deviceID}/actions/{action}", api.Handler(h.doAction))

	hub := wshub.New(deps.Bus)
	router.Handle("/v1/ws", hub)

	if deps.UpnpPath != "" {
		upnpHandler := ingress.NewUpnpHandler(deps.Directory)
		router.MethodFunc("NOTIFY", deps.UpnpPath, upnpHandler.ServeHTTP)
	}

	return router
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "musiccast-hub",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
