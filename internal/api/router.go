package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Investment-Ledger-Backend/internal/api/middleware"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/config"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
)

// Services groups the services the router exposes.
type Services struct {
	System    *service.SystemService
	Positions *service.PositionService
	Writer    *service.LedgerWriter
	Import    *service.ImportService
	Prices    *service.PriceService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/instrument", func(r chi.Router) {
			instrumentHandler := handlers.NewInstrumentHandler(svc.Positions, svc.Writer)
			r.Get("/", instrumentHandler.Instruments)

			r.Route("/{key}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateInstrumentKeyMiddleware)
				r.Get("/position", instrumentHandler.Position)
				r.Post("/event", instrumentHandler.AppendEvent)
				r.Post("/fingerprint", instrumentHandler.Fingerprint)

				r.Route("/lot/{lotId}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateLotIDMiddleware)
					r.Get("/", instrumentHandler.Lot)
					r.Delete("/", instrumentHandler.RemoveLot)
				})
			})
		})

		r.Route("/import", func(r chi.Router) {
			importHandler := handlers.NewImportHandler(svc.Import)
			r.Post("/", importHandler.Import)
		})

		r.Route("/price", func(r chi.Router) {
			priceHandler := handlers.NewPriceHandler(svc.Prices)
			r.Get("/", priceHandler.Prices)
		})
	})

	return r
}
