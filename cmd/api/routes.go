package main

import (
	"log"
	"net/http"

	httphandlers "gdbank/internal/interfaces/http"
	"gdbank/internal/shared/config"
	"gdbank/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	h := deps.BankHandler

	mux.HandleFunc("GET /health", httphandlers.HandleHealth)
	mux.Handle("GET /static/", httphandlers.StaticHandler())

	// Session routes
	withSession := func(fn http.HandlerFunc) http.Handler {
		return deps.RateLimiter.Middleware(middleware.Session(deps.JWT)(fn))
	}
	mux.Handle("GET /{$}", withSession(h.HandlePage))
	mux.Handle("POST /connect", withSession(h.HandleConnect))
	mux.Handle("POST /refresh", withSession(h.HandleRefresh))
	mux.Handle("POST /deposit", withSession(h.HandleDeposit))
	mux.Handle("POST /withdraw", withSession(h.HandleWithdraw))
	mux.Handle("POST /bank-name", withSession(h.HandleSetBankName))
	mux.Handle("GET /api/state", withSession(h.HandleState))
	mux.Handle("PUT /api/fields/{name}", withSession(h.HandleUpdateField))

	// Apply global middleware
	handler := middleware.SecureHeaders(mux)
	handler = middleware.CORS(cfg.Server.AllowedHosts)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.Logging(handler)

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(handler)
	}

	return handler
}
