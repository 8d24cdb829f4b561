package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/augenstern326/star-exchange/configs"
	"github.com/augenstern326/star-exchange/internal/handlers"
	"github.com/augenstern326/star-exchange/internal/httputil"
	appmw "github.com/augenstern326/star-exchange/internal/middleware"
)

func NewRoutes(h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.With(appmw.Authenticated).Get("/auth/me", h.Me)

	r.Route("/tasks", func(r chi.Router) {
		r.Use(appmw.Authenticated)
		r.With(appmw.ParentOnly).Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Get("/{id}", h.GetTask)
		r.Post("/{id}/start", h.StartTask)
		r.Post("/{id}/complete", h.CompleteTask)
		r.With(appmw.ParentOnly).Post("/{id}/approve", h.ApproveTask)
		r.With(appmw.ParentOnly).Delete("/{id}", h.DeleteTask)
	})

	r.Route("/products", func(r chi.Router) {
		r.Use(appmw.Authenticated)
		r.With(appmw.ParentOnly).Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
		r.With(appmw.ParentOnly).Patch("/{id}", h.UpdateProduct)
		r.With(appmw.ParentOnly).Delete("/{id}", h.DeleteProduct)
	})

	r.Route("/exchanges", func(r chi.Router) {
		r.Use(appmw.Authenticated)
		r.Post("/", h.CreateExchange)
		r.Get("/", h.ListExchanges)
		r.Get("/{id}", h.GetExchange)
		r.Post("/{id}/cancel", h.CancelExchange)
		r.With(appmw.ParentOnly).Post("/{id}/complete", h.CompleteExchange)
	})

	r.With(appmw.Authenticated).Get("/transactions", h.ListTransactions)
	r.With(appmw.Authenticated, appmw.ParentOnly).Post("/adjustments", h.AdjustBalance)

	r.Route("/children", func(r chi.Router) {
		r.Use(appmw.Authenticated)
		r.Get("/", h.ListChildren)
		r.Get("/{id}/stats", h.ChildStats)
		r.With(appmw.ParentOnly).Get("/{id}/reconcile", h.ReconcileChild)
	})

	if configs.AppConfig.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
