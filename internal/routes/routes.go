package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/hemolink/hemolink-backend/internal/handlers"
	"github.com/hemolink/hemolink-backend/internal/middleware"
)

func SetupRoutes(r *chi.Mux) {
	// Donor routes
	r.With(middleware.RegistrationRateLimit).Post("/api/v1/donors", handlers.CreateDonor)
	r.Get("/api/v1/donors", handlers.GetDonors)
	r.Get("/api/v1/donors/{donorID}", handlers.GetDonor)
	r.Put("/api/v1/donors/{donorID}", handlers.UpdateDonor)

	// Search (rate limited per client inside the search engine)
	r.Post("/api/v1/donors/search", handlers.SearchDonors)

	// Admin routes
	r.Post("/api/admin/signin", handlers.AdminSignin)
	r.Get("/api/admin/stats", handlers.GetAdminStats)
	r.Get("/api/admin/donors", handlers.AdminGetDonors)
	r.Put("/api/admin/donors/verify", handlers.AdminVerifyDonor)
	r.Delete("/api/admin/donors", handlers.AdminDeleteDonor)
	r.Get("/api/admin/search-activity", handlers.AdminGetSearchActivity)
	r.Put("/api/admin/unblock-ip", handlers.AdminUnblockIP)

	// WebSocket endpoint for the real-time donor feed
	r.Get("/ws", handlers.DonorFeed)
}
