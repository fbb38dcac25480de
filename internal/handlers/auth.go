package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viddify/viddify-backend/internal/middleware"
	"github.com/viddify/viddify-backend/internal/services"
)

var (
	authService   *services.AuthService
	vaultService  *services.VaultService
	avatarService *services.AvatarService
	appOriginURL  string
)

// Init wires the handler package to its services. avatar may be nil when
// Cloudinary is not configured; avatar upload then reports unavailability.
func Init(auth *services.AuthService, vault *services.VaultService, avatar *services.AvatarService, appOrigin string) {
	authService = auth
	vaultService = vault
	avatarService = avatar
	appOriginURL = appOrigin
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"` // email or username
	Password string `json:"password"`
}

type ssoVerifyRequest struct {
	ExchangeToken string `json:"exchangeToken"`
}

// Register handles POST /auth/register.
func Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, kindValidation, "Invalid request body")
		return
	}

	_, err := authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful. Please check your email to verify your account.",
	})
}

// VerifyEmail handles GET /auth/verify-email/{token}.
func VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if _, err := authService.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, services.ErrInvalidOrExpired) {
			respondError(w, http.StatusBadRequest, kindInvalidOrExpired, "Verification link is invalid or has expired")
			return
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Email verified successfully. You can now log in.",
	})
}

// Login handles POST /auth/login.
func Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, kindValidation, "Invalid request body")
		return
	}
	if req.Login == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, kindValidation, "Login and password are required")
		return
	}

	user, token, err := authService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newAuthUserResponse(user, token))
}

// SSOGenerate handles GET /auth/sso/generate. The caller is already
// authenticated on this origin; the returned token bootstraps a session on
// the application origin.
func SSOGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	raw, err := authService.GenerateExchangeToken(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"exchangeToken": raw})
}

// SSOVerify handles POST /auth/sso/verify: redeems a single-use exchange
// token and mints a fresh session for its bound user.
func SSOVerify(w http.ResponseWriter, r *http.Request) {
	var req ssoVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, kindValidation, "Invalid request body")
		return
	}
	if req.ExchangeToken == "" {
		respondError(w, http.StatusUnauthorized, kindInvalidOrExpired, "Invalid or expired token")
		return
	}

	user, token, err := authService.RedeemExchangeToken(r.Context(), req.ExchangeToken)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newAuthUserResponse(user, token))
}
