package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dan9191/foodlink-service/internal/apperror"
	"github.com/Dan9191/foodlink-service/internal/middleware"
	"github.com/Dan9191/foodlink-service/internal/models"
	"github.com/Dan9191/foodlink-service/internal/service"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// donateRequest accepts quantity as a JSON number or a numeric string,
// since HTML form inputs submit strings.
type donateRequest struct {
	Name        string      `json:"name"`
	FoodItem    string      `json:"foodItem"`
	Quantity    json.Number `json:"quantity"`
	Location    string      `json:"location"`
	PhoneNumber string      `json:"phoneNumber"`
	Address     string      `json:"address"`
}

type claimRequest struct {
	DonationID string `json:"donationId"`
}

// Health reports that the service is up
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("FoodLink Backend is running!"))
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"token":    token,
		"username": user.Username,
	})
}

// Donate handles creation of an open donation by the authenticated user
func (h *Handler) Donate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperror.ErrNotAuthenticated)
		return
	}
	var req donateRequest
	if !h.decode(w, r, &req) {
		return
	}
	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	donation, err := h.svc.CreateDonation(r.Context(), userID, models.DonationDetails{
		Name:        req.Name,
		FoodItem:    req.FoodItem,
		Quantity:    quantity,
		Location:    req.Location,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Donation saved successfully!",
		"donation": donation,
	})
}

// ListDonations returns all open donations
func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.svc.ListOpenDonations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// Claim handles the claim of an open donation by the authenticated user
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperror.ErrNotAuthenticated)
		return
	}
	var req claimRequest
	if !h.decode(w, r, &req) {
		return
	}
	claimed, err := h.svc.ClaimDonation(r.Context(), req.DonationID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Donation claimed successfully!",
		"donation": claimed,
	})
}

// Stats returns donation counts
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UserInfo returns the authenticated user's profile and counters
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperror.ErrNotAuthenticated)
		return
	}
	profile, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UserClaims returns the donations claimed by the authenticated user
func (h *Handler) UserClaims(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperror.ErrNotAuthenticated)
		return
	}
	claims, err := h.svc.ListClaimed(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, fmt.Errorf("malformed request body: %w", apperror.ErrValidation))
		return false
	}
	return true
}

func parseQuantity(n json.Number) (int, error) {
	if n == "" {
		return 0, fmt.Errorf("quantity is required: %w", apperror.ErrValidation)
	}
	q, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("quantity must be a whole number: %w", apperror.ErrValidation)
	}
	return q, nil
}

// writeError maps the error taxonomy onto HTTP statuses. Store failures are
// logged and hidden from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrNotAuthenticated):
		status, msg = http.StatusUnauthorized, "Unauthorized: invalid credentials"
	case errors.Is(err, apperror.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, apperror.ErrConflict):
		status, msg = http.StatusConflict, "Username or email already exists"
	}

	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
