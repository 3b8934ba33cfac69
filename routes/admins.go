package routes

import (
	"net/http"
	"time"

	"project/controllers/admins"
	"project/middleware"

	"github.com/gorilla/mux"
)

// SetAdminRoutes mendaftarkan semua route admin ke subrouter yang diberikan
func SetAdminRoutes(api *mux.Router) {
	adminLimiter := middleware.NewIPRateLimiter(600, time.Minute)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(adminLimiter.Middleware)
	admin.Use(middleware.AdminAuthMiddleware)

	admin.Handle("/orders", http.HandlerFunc(admins.ListOrdersHandler)).Methods(http.MethodGet)
	admin.Handle("/orders/{id}/status", http.HandlerFunc(admins.UpdateStatusHandler)).Methods(http.MethodPut)
	admin.Handle("/orders/{id}/demo", http.HandlerFunc(admins.SetDemoHandler)).Methods(http.MethodPut)
	admin.Handle("/orders/{id}/final", http.HandlerFunc(admins.SetFinalHandler)).Methods(http.MethodPut)
	admin.Handle("/orders/{id}/deliverable", http.HandlerFunc(admins.UploadDeliverableHandler)).Methods(http.MethodPost)
	admin.Handle("/users", http.HandlerFunc(admins.ListUsersHandler)).Methods(http.MethodGet)
}
