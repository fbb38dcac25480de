package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ChannelGrant is the result of a completed external authorization: the
// delegated credentials plus the channel they belong to.
type ChannelGrant struct {
	AccessToken  string
	RefreshToken string
	ChannelID    string
	ChannelName  string
}

// YouTubeClient is the external-authorization collaborator: it builds the
// consent URL and turns an authorization code into delegated credentials and
// channel identity.
type YouTubeClient interface {
	AuthCodeURL(state string) string
	ExchangeAuthorizationCode(ctx context.Context, code string) (*ChannelGrant, error)
}

const (
	googleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL  = "https://oauth2.googleapis.com/token"
	youtubeChannels = "https://www.googleapis.com/youtube/v3/channels"
)

var youtubeScopes = []string{
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube",
}

// GoogleYouTubeClient talks to Google's OAuth token endpoint and the YouTube
// Data API directly over HTTP.
type GoogleYouTubeClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	client       *http.Client
}

func NewGoogleYouTubeClient(clientID, clientSecret, redirectURI string) *GoogleYouTubeClient {
	return &GoogleYouTubeClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthCodeURL builds the consent-screen URL the user is sent to. The state
// value is round-tripped by Google and checked on callback.
func (c *GoogleYouTubeClient) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(youtubeScopes, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)
	return googleAuthURL + "?" + q.Encode()
}

func (c *GoogleYouTubeClient) ExchangeAuthorizationCode(ctx context.Context, code string) (*ChannelGrant, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("token exchange failed: %s - %s", resp.Status, string(detail))
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned no access token")
	}

	channelID, channelName, err := c.ownChannel(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	return &ChannelGrant{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ChannelID:    channelID,
		ChannelName:  channelName,
	}, nil
}

// ownChannel looks up the channel belonging to the authorizing account.
func (c *GoogleYouTubeClient) ownChannel(ctx context.Context, accessToken string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, youtubeChannels+"?part=snippet,id&mine=true", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("channel lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", "", fmt.Errorf("channel lookup failed: %s - %s", resp.Status, string(detail))
	}

	var channels struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&channels); err != nil {
		return "", "", fmt.Errorf("decoding channel response: %w", err)
	}
	if len(channels.Items) == 0 {
		return "", "", fmt.Errorf("no YouTube channel found for this account")
	}

	return channels.Items[0].ID, channels.Items[0].Snippet.Title, nil
}
