package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aagnone3/software-multi-tool-sub002/internal/http/handlers"
	"github.com/aagnone3/software-multi-tool-sub002/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.SubmitJob)
		r.Get("/stats", app.JobStats)
		r.Post("/cached", app.CachedJob)
		r.Get("/{id}", app.GetJob)
		r.Post("/{id}/cancel", app.CancelJob)
		r.Post("/{id}/requeue", app.RequeueJob)
	})

	r.Route("/v1/credits", func(r chi.Router) {
		r.Post("/grant", app.GrantCredits)
		r.Post("/reset", app.ResetCredits)
		r.Post("/adjust", app.AdjustCredits)
		r.Post("/purchase", app.RecordPurchase)
		r.Get("/balance", app.Balance)
		r.Get("/purchases", app.Purchases)
	})

	r.Route("/v1/maintenance", func(r chi.Router) {
		r.Post("/reap", app.ReapStuck)
		r.Post("/cleanup", app.CleanupExpired)
	})

	return r
}
