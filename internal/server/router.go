package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/session", h.Session)

			r.Route("/onboarding", func(r chi.Router) {
				r.Post("/location", h.VerifyLocation)
				r.Post("/curp", h.SubmitCURP)
				r.Post("/biometric", h.ScanBiometric)
				r.Post("/complete", h.CompleteOnboarding)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.RequireLedger)

				r.Get("/dashboard", h.Dashboard)

				r.Post("/transfers/validate", h.ValidateTransfer)
				r.Post("/transfers", h.SendTransfer)

				r.Get("/loans/offer", h.LoanOffer)
				r.Post("/loans/quote", h.LoanQuote)
				r.Post("/loans", h.ConfirmLoan)

				r.Get("/chat", h.ChatLog)
				r.Post("/chat", h.Ask)
			})
		})

		// long-lived, so outside the request timeout
		r.With(h.RequireLedger).Get("/chat/ws", h.ChatSocket)
	})

	return r
}

func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
