// Package api provides the HTTP surface of the gateway: authentication,
// query execution, grant administration, column securing, CSV ingestion,
// and the audit trail.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"datashield/internal/domain"
	"datashield/internal/gateway"
	"datashield/internal/ingest"
	"datashield/internal/keyvault"
	"datashield/internal/middleware"
	"datashield/internal/policy"
	"datashield/internal/service/governance"
	"datashield/internal/service/security"
)

// Handler holds the service dependencies behind the HTTP routes.
type Handler struct {
	gateway  *gateway.Gateway
	identity *security.IdentityService
	policy   *policy.Engine
	vault    *keyvault.Vault
	audit    *governance.AuditService
	loader   *ingest.Loader
	store    domain.Datastore
	signer   *middleware.TokenSigner
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(
	gw *gateway.Gateway,
	identity *security.IdentityService,
	engine *policy.Engine,
	vault *keyvault.Vault,
	audit *governance.AuditService,
	loader *ingest.Loader,
	store domain.Datastore,
	signer *middleware.TokenSigner,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		gateway:  gw,
		identity: identity,
		policy:   engine,
		vault:    vault,
		audit:    audit,
		loader:   loader,
		store:    store,
		signer:   signer,
		logger:   logger,
	}
}

// RouterConfig carries the HTTP-level settings the router needs.
type RouterConfig struct {
	RateLimit      middleware.RateLimitConfig
	AllowedOrigins []string
}

// Routes assembles the chi router. Login and health are public; everything
// under /v1 requires a bearer token, and administration requires the admin
// role.
func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimit))
	}

	r.Get("/healthz", h.health)
	r.Post("/v1/auth/login", h.login)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(h.signer))

		r.Post("/query", h.runQuery)
		r.Get("/tables", h.listTables)
		r.Get("/tables/{table}/schema", h.tableSchema)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/users", h.createUser)
			r.Get("/users", h.listUsers)
			r.Delete("/users/{name}", h.deleteUser)

			r.Post("/grants", h.createGrant)
			r.Delete("/grants", h.revokeGrant)
			r.Get("/grants/{principal}", h.listGrants)

			r.Post("/columns/secure", h.secureColumn)
			r.Post("/ingest", h.ingestCSV)

			r.Get("/audit", h.listAudit)
			r.Get("/audit/export", h.exportAudit)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
