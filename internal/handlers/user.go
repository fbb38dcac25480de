package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/viddify/viddify-backend/internal/middleware"
)

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Profile handles GET /auth/profile.
func Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	user, err := authService.Profile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newAuthUserResponse(user, ""))
}

// UpdateProfile handles PUT /user/profile. Blank fields keep their current
// values.
func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, kindValidation, "Invalid request body")
		return
	}

	user, err := authService.UpdateProfile(r.Context(), userID, req.Username, req.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newAuthUserResponse(user, ""))
}

// UpdatePassword handles PUT /user/password.
func UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, kindValidation, "Invalid request body")
		return
	}

	if err := authService.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated successfully",
	})
}

// UpdateAvatar handles PUT /user/avatar (multipart/form-data, field "avatar").
func UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	if avatarService == nil {
		respondError(w, http.StatusBadGateway, kindDependency, "Avatar uploads are not available")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, kindValidation, "Please upload an image file")
		return
	}

	file, _, err := r.FormFile("avatar")
	if err != nil {
		respondError(w, http.StatusBadRequest, kindValidation, "Please upload an image file")
		return
	}
	defer file.Close()

	url, err := avatarService.Upload(r.Context(), file)
	if err != nil {
		respondError(w, http.StatusBadGateway, kindDependency, "Avatar upload failed")
		return
	}

	user, err := authService.UpdateAvatar(r.Context(), userID, url)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newAuthUserResponse(user, ""))
}
