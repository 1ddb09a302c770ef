package handler

import (
	"net/http"

	"github.com/Dan9191/auth-service/internal/auth"
	"github.com/Dan9191/auth-service/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the HTTP surface. Public routes are registered directly;
// protected routes are wrapped with the access-guard chain.
func NewRouter(h *Handler, issuer *auth.TokenIssuer, store middleware.UserResolver, log *logrus.Logger) *mux.Router {
	authed := middleware.AuthMiddleware(issuer, store, log)
	active := middleware.RequireActiveUser()
	super := middleware.RequireSuperuser()

	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/users", h.CreateUser).Methods("POST")
	r.HandleFunc("/token", h.Login).Methods("POST")
	// Protected routes
	r.Handle("/users/me", authed(active(http.HandlerFunc(h.Me)))).Methods("GET")
	r.Handle("/users/{id:[0-9]+}", authed(active(super(http.HandlerFunc(h.UpdateUser))))).Methods("PUT")

	return r
}
