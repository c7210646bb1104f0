package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"accountd.org/internal/auth"
	"accountd.org/internal/obs"
)

// ReadyProbe pings the backing database for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the auth service.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	readyProbe ReadyProbe
	version    string

	// Rate limits, overridable before Handler is built (tests raise them).
	rateBurst      int
	ratePerSec     int
	authRateBurst  int
	authRatePerSec int
	maxBodyBytes   int64
	allowedOrigins []string
}

// New wires routes onto a fresh mux. The auth endpoints are public; the
// /v1/user endpoints sit behind the bearer-token middleware.
func New(svc *auth.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		readyProbe: rp,
		version:    version,

		rateBurst:      50,
		ratePerSec:     25,
		authRateBurst:  10,
		authRatePerSec: 5,
		maxBodyBytes:   1 << 20,
	}

	a.mux.HandleFunc("/healthz", a.healthz)
	a.mux.HandleFunc("/readyz", a.ready)
	a.mux.HandleFunc("/v1/info", a.info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/v1/user/profile", a.handleProfile)
	a.mux.HandleFunc("/v1/user/account", a.handleAccount)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeRouteNotFound, "route not found")
	})

	return a
}

// SetAllowedOrigins replaces the CORS origin allowlist. Call before Handler.
func (a *API) SetAllowedOrigins(origins []string) {
	a.allowedOrigins = nil
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			a.allowedOrigins = append(a.allowedOrigins, o)
		}
	}
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimitPath(h, "/v1/auth/", a.authRateBurst, a.authRatePerSec)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h, a.allowedOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "accountd-api",
		"version": a.version,
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "accountd-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
