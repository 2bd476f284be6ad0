package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shabbeerali786/Online-Medical-Consultation/internal/appointments"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/doctors"
	httpmiddleware "github.com/shabbeerali786/Online-Medical-Consultation/internal/http/middleware"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/messaging"
	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	DoctorsHandler      *doctors.Handler
	MessagingHandler    *messaging.Handler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string

	// BookingRateLimit throttles booking attempts per client IP. Zero
	// disables the limiter.
	BookingRateLimit float64
	BookingBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/appointments", func(r chi.Router) {
		if cfg.BookingRateLimit > 0 {
			r.With(httpmiddleware.RateLimit(cfg.BookingRateLimit, cfg.BookingBurst)).
				Post("/", cfg.AppointmentsHandler.Book)
		} else {
			r.Post("/", cfg.AppointmentsHandler.Book)
		}
		r.Get("/", cfg.AppointmentsHandler.List)
		r.Get("/{id}", cfg.AppointmentsHandler.Get)
		r.Put("/{id}", cfg.AppointmentsHandler.UpdateDetails)
		r.Post("/{id}/confirm", cfg.AppointmentsHandler.Confirm)
		r.Post("/{id}/check-in", cfg.AppointmentsHandler.CheckIn)
		r.Post("/{id}/start", cfg.AppointmentsHandler.Start)
		r.Post("/{id}/complete", cfg.AppointmentsHandler.Complete)
		r.Post("/{id}/cancel", cfg.AppointmentsHandler.Cancel)
		r.Post("/{id}/reschedule", cfg.AppointmentsHandler.Reschedule)
		r.Get("/{id}/messages", cfg.MessagingHandler.ForAppointment)

		// Administrative status overwrite bypasses the transition rules.
		r.With(httpmiddleware.AdminJWT(cfg.AdminAuthSecret)).
			Patch("/{id}/status", cfg.AppointmentsHandler.ForceStatus)
	})

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", cfg.DoctorsHandler.List)
		r.Get("/{id}", cfg.DoctorsHandler.Get)
		r.With(httpmiddleware.AdminJWT(cfg.AdminAuthSecret)).
			Post("/", cfg.DoctorsHandler.Create)
		r.With(httpmiddleware.AdminJWT(cfg.AdminAuthSecret)).
			Patch("/{id}/availability", cfg.DoctorsHandler.SetAvailability)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Get("/", cfg.MessagingHandler.Inbox)
		r.Post("/", cfg.MessagingHandler.Send)
		r.Post("/{id}/read", cfg.MessagingHandler.MarkRead)
	})

	return r
}
