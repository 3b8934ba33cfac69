package routes

import (
	"net/http"
	"time"

	"project/controllers/auth"
	"project/controllers/users"
	"project/middleware"
	"project/services"

	"github.com/gorilla/mux"
)

// UsersRoutes mendaftarkan semua route terkait user ke subrouter yang diberikan
func UsersRoutes(api *mux.Router, paymentService *services.PaymentService) {
	// Rate limiter login/register: 60 per IP per 5 menit
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// Rate limiter session: 120 per user per menit (GET), 60 per user per menit (POST/PUT/DELETE)
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)

	// Register & Login
	api.Handle("/auth/register", loginLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/auth/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/auth/refresh", loginLimiter.Middleware(http.HandlerFunc(auth.RefreshHandler))).Methods(http.MethodPost)
	api.Handle("/auth/logout", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(auth.LogoutHandler)))).Methods(http.MethodPost)

	// Current account
	api.Handle("/me", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.MeHandler)))).Methods(http.MethodGet)

	// Orders
	api.Handle("/orders", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.CreateOrderHandler)))).Methods(http.MethodPost)
	api.Handle("/orders", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.ListOrdersHandler)))).Methods(http.MethodGet)

	// Payments
	paymentController := users.NewPaymentController(paymentService)
	api.Handle("/payments", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.HistoryHandler)))).Methods(http.MethodGet)
	api.Handle("/payments/initiate", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(paymentController.InitiateHandler)))).Methods(http.MethodPost)
}
