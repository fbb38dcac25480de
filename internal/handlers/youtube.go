package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viddify/viddify-backend/internal/middleware"
	"github.com/viddify/viddify-backend/internal/services"
)

// YouTubeAuthURL handles GET /youtube/auth-url: starts the channel link flow
// for the authenticated user.
func YouTubeAuthURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	url, err := vaultService.AuthURL(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"url": url})
}

// YouTubeCallback handles GET /youtube/callback?code&state. The request is
// browser-borne and unauthenticated; the state nonce alone identifies the
// initiating user. On success the browser is sent back to the application
// origin.
func YouTubeCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		respondError(w, http.StatusBadRequest, kindValidation, "Missing code or state")
		return
	}

	if err := vaultService.HandleCallback(r.Context(), code, state); err != nil {
		if errors.Is(err, services.ErrInvalidOrExpired) {
			respondError(w, http.StatusUnauthorized, kindInvalidOrExpired, "Link flow is invalid or has expired. Please start again.")
			return
		}
		respondServiceError(w, err)
		return
	}

	http.Redirect(w, r, appOriginURL+"/profile", http.StatusFound)
}

// YouTubeChannels handles GET /youtube/channels: channel id and display name
// only, never credential material.
func YouTubeChannels(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	channels, err := vaultService.Channels(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, channels)
}

// YouTubeUnlink handles DELETE /youtube/channels/{channelId}.
func YouTubeUnlink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, kindUnauthorized, "Not authorized")
		return
	}

	channelID := chi.URLParam(r, "channelId")
	if err := vaultService.Unlink(r.Context(), userID, channelID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Channel unlinked successfully",
	})
}
