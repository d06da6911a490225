package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/reimagine-business/donna/internal/analytics"
	"github.com/reimagine-business/donna/internal/auth"
	"github.com/reimagine-business/donna/internal/entry"
	"github.com/reimagine-business/donna/internal/settlement"
	"github.com/reimagine-business/donna/internal/transport/middleware"
	"github.com/reimagine-business/donna/internal/transport/swagger"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authMiddleware *auth.Middleware,
	entryHandler *entry.Handler,
	settlementHandler *settlement.Handler,
	analyticsHandler *analytics.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI spec and Swagger UI live outside the API prefix.
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Get("/meta/enums", entryHandler.GetEnums)

		r.Group(func(pr chi.Router) {
			pr.Use(authMiddleware.RequireUser)

			pr.Route("/entries", func(er chi.Router) {
				er.Post("/", entryHandler.CreateEntry)
				er.Get("/", entryHandler.ListEntries)
				er.Get("/{id}", entryHandler.GetEntry)
				er.Patch("/{id}", entryHandler.UpdateEntry)
				er.Delete("/{id}", entryHandler.DeleteEntry)

				er.Post("/{id}/settle", settlementHandler.Settle)
				er.Get("/{id}/quick-amounts", settlementHandler.QuickAmounts)
			})

			pr.Delete("/settlements/{id}", settlementHandler.DeleteSettlement)

			pr.Route("/analytics", func(ar chi.Router) {
				ar.Get("/cash-balance", analyticsHandler.CashBalance)
				ar.Get("/profit", analyticsHandler.Profit)
				ar.Get("/pending", analyticsHandler.Pending)
			})
		})
	})
}
