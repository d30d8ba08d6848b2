package handler

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter wires public routes and the bearer-protected routes behind authMW
func NewRouter(h *Handler, authMW, logMW mux.MiddlewareFunc, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/", h.Health).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/signup", h.Signup).Methods("POST")
	api.HandleFunc("/login", h.Login).Methods("POST")
	api.HandleFunc("/donations", h.ListDonations).Methods("GET")
	api.HandleFunc("/stats", h.Stats).Methods("GET")

	// Protected routes
	authRouter := api.NewRoute().Subrouter()
	authRouter.Use(authMW)
	authRouter.HandleFunc("/donate", h.Donate).Methods("POST")
	authRouter.HandleFunc("/claim", h.Claim).Methods("POST")
	authRouter.HandleFunc("/user/info", h.UserInfo).Methods("GET")
	authRouter.HandleFunc("/user/claims", h.UserClaims).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)
	// logged outside the router so unmatched routes are included
	return cors(logMW(r))
}
