package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/viddify/viddify-backend/internal/models"
	"github.com/viddify/viddify-backend/internal/services"
	"github.com/viddify/viddify-backend/internal/store"
)

// Error kinds. Stable machine-readable values; the message is for humans.
const (
	kindValidation       = "validation"
	kindConflict         = "conflict"
	kindUnauthorized     = "unauthorized"
	kindUnverified       = "unverified"
	kindNotFound         = "not_found"
	kindInvalidOrExpired = "invalid_or_expired"
	kindDependency       = "dependency"
	kindInternal         = "internal"
)

type errorResponse struct {
	Success bool                `json:"success"`
	Kind    string              `json:"kind"`
	Message string              `json:"message"`
	Errors  []map[string]string `json:"errors,omitempty"`
}

// authUserResponse is the login/SSO success body: identity plus the bearer
// token, never any secret material.
type authUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
	Token    string `json:"token,omitempty"`
}

func newAuthUserResponse(user *models.User, token string) authUserResponse {
	return authUserResponse{
		ID:       user.ID.Hex(),
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Avatar:   user.Avatar,
		Token:    token,
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, errorResponse{Kind: kind, Message: message})
}

// respondServiceError converts a service-layer error into its structured
// response. Internal details never reach the caller.
func respondServiceError(w http.ResponseWriter, err error) {
	var fieldErrs services.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		body := errorResponse{Kind: kindValidation, Message: fieldErrs.Error()}
		for _, fe := range fieldErrs {
			body.Errors = append(body.Errors, map[string]string{"field": fe.Field, "message": fe.Message})
		}
		respondJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, store.ErrDuplicate):
		respondError(w, http.StatusConflict, kindConflict, "User with that email or username already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrEmailNotVerified):
		respondError(w, http.StatusUnauthorized, kindUnverified, "Please verify your email to login. A new verification link has been sent.")
	case errors.Is(err, services.ErrInvalidOrExpired):
		respondError(w, http.StatusUnauthorized, kindInvalidOrExpired, "Invalid or expired token")
	case errors.Is(err, services.ErrRelinkRequired):
		respondError(w, http.StatusConflict, kindConflict, "Stored channel credentials are no longer usable. Please link the channel again.")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, kindNotFound, "Not found")
	case errors.Is(err, services.ErrDependency):
		log.Printf("dependency failure: %v", err)
		respondError(w, http.StatusBadGateway, kindDependency, "An upstream service is unavailable. Please try again later.")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, kindInternal, "Server error")
	}
}
