// Package handler is the HTTP surface of the service.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"sporty-backend/authz"
	"sporty-backend/enrollment"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/events"
	"sporty-backend/jwt"
	"sporty-backend/metrics"
	"sporty-backend/payment"
	"sporty-backend/ratelimit"
	"sporty-backend/store"
)

type Deps struct {
	Store      *store.Store
	Tokens     *jwt.Service
	Enrollment *enrollment.Coordinator
	Payments   payment.Gateway
	Events     events.Publisher
	Metrics    metrics.Recorder
	// Gatherer backs /metrics; the route is absent when nil.
	Gatherer       prometheus.Gatherer
	Limiter        ratelimit.Limiter
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Payments == nil {
		d.Payments = payment.Unconfigured{}
	}

	gate := authz.NewGate(d.Store.Users)
	policy := bluemonday.StrictPolicy()

	auth := newAuthHandler(d.Tokens, gate)
	users := newUserHandler(d.Store.Users, gate, policy)
	classes := newClassHandler(d.Store.Classes, d.Store.Users, d.Events, policy)
	selections := newSelectionHandler(d.Store.Selections, d.Store.Classes)
	enrolled := newEnrollmentHandler(d.Enrollment, d.Payments)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(d.Metrics))
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("server is running"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: true, Message: "store unavailable"})
			return
		}
		ok(w, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(ratelimit.Middleware(ratelimit.Config{
				Limiter: d.Limiter,
				OnLimited: func(w http.ResponseWriter, r *http.Request) {
					d.Metrics.RecordRateLimited()
					writeError(w, r, errs.ErrRateLimited)
				},
			}))
		}

		token := auth.Authenticate
		admin := auth.Require(entity.RoleAdmin)
		instructor := auth.Require(entity.RoleInstructor)

		r.Post("/jwt", auth.IssueToken)

		r.With(token, admin).Get("/users", users.List)
		r.Post("/users", users.Create)
		r.Get("/users/{email}", users.Get)
		r.With(token, admin).Get("/users/admin/{email}", users.CheckRole(entity.RoleAdmin, "admin"))
		r.With(token, instructor).Get("/users/instructor/{email}", users.CheckRole(entity.RoleInstructor, "instructor"))
		r.With(token, admin).Patch("/users/admin/{id}", users.SetRole(entity.RoleAdmin))
		r.With(token, admin).Patch("/users/instructor/{id}", users.SetRole(entity.RoleInstructor))

		r.With(token, admin).Get("/classes", classes.List)
		r.With(token, instructor).Post("/classes", classes.Create)
		r.Get("/approved-classes", classes.ListApproved)
		r.Get("/popular-classes", classes.Popular)
		r.With(token, instructor).Get("/classes/{email}", classes.ListByInstructor)
		r.With(token, admin).Put("/classes/approved/{id}", classes.SetStatus(entity.StatusApproved))
		r.With(token, admin).Put("/classes/denied/{id}", classes.SetStatus(entity.StatusDenied))
		r.With(token, admin).Put("/classes/feedback/{id}", classes.SetFeedback)

		r.With(token).Post("/classes/selected", selections.Create)
		r.With(token).Get("/classes/selected/{email}", selections.ListByUser)
		r.With(token).Get("/classes/get/{id}", selections.Get)
		r.With(token).Delete("/classes/selected/{id}", selections.Delete)

		r.Get("/instructors", users.ListInstructors)
		r.Get("/instructors/popular", users.PopularInstructors)

		r.With(token).Post("/create-payment-intent", enrolled.CreatePaymentIntent)
		r.With(token).Post("/enrolled", enrolled.Enroll)
		r.With(token).Get("/enrolled/{email}", enrolled.ListByEmail)
	})

	return r
}
