// Package api assembles the HTTP router.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/handlers"
	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter wires every route behind the standard middleware chain.
func NewRouter(lh *handlers.LedgerHandler, ih *handlers.ImportHandler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts", lh.ListAccounts)
		r.Post("/accounts", lh.CreateAccount)
		r.Put("/accounts/{id}", lh.UpdateAccount)
		r.Delete("/accounts/{id}", lh.DeleteAccount)
		r.Get("/account-types", lh.ListAccountTypes)
		r.Get("/categories", lh.ListCategories)

		r.Get("/transactions", lh.ListTransactions)
		r.Post("/transactions", lh.CreateTransaction)

		r.Get("/monthly-balances", lh.ListMonthlyBalances)
		r.Put("/monthly-balances", lh.SaveMonthlyBalances)
		r.Get("/periods/{year}/{month}", lh.PeriodStates)

		r.Get("/jars", lh.ListJars)
		r.Put("/jars", lh.SaveJars)
		r.Get("/jars/value", lh.JarValues)
		r.Get("/rules", lh.ListRules)
		r.Put("/rules", lh.SaveRules)
		r.Get("/budget", lh.ListBudget)
		r.Put("/budget", lh.SaveBudget)

		r.Get("/export", lh.Export)
		r.Post("/import", lh.Import)

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", lh.Status)
			r.Post("/push", lh.Push)
			r.Post("/pull", lh.Pull)
			r.Post("/now", lh.SyncNow)
			r.Put("/token", lh.Connect)
			r.Delete("/token", lh.Disconnect)
		})

		if ih != nil {
			r.Post("/import/scan", ih.Scan)
			r.Post("/import/commit", ih.Commit)
			r.Get("/jobs", ih.ListJobs)
			r.Get("/jobs/{id}", ih.GetJob)
		}
	})

	return r
}
