package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dan9191/auth-service/internal/middleware"
	"github.com/Dan9191/auth-service/internal/models"
	"github.com/Dan9191/auth-service/internal/repository"
	"github.com/Dan9191/auth-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Root handles the hello endpoint
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

// CreateUser handles public user registration
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Email == "" || in.Password == "" {
		h.respondDetail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.svc.Register(r.Context(), &in)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			h.respondDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
		h.serverError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

// UpdateUser handles partial updates by a superuser
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondDetail(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var in models.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), id, &in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			h.respondDetail(w, http.StatusNotFound, "The user with this username does not exist in the system")
		case errors.Is(err, repository.ErrDuplicateEmail):
			h.respondDetail(w, http.StatusBadRequest, "Email already registered")
		default:
			h.serverError(w, err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

// Login handles the OAuth2 password flow form and issues an access token.
// Unknown email and wrong password are deliberately indistinguishable here.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.respondDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")

	token, err := h.svc.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			h.respondDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.serverError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.Token{AccessToken: token, TokenType: "bearer"})
}

// Me returns the authenticated caller's own record
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.respondDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) respondDetail(w http.ResponseWriter, status int, detail string) {
	h.respondJSON(w, status, map[string]string{"detail": detail})
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.log.Errorf("Request failed: %v", err)
	h.respondDetail(w, http.StatusInternalServerError, "Internal server error")
}
