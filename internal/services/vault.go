package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/viddify/viddify-backend/internal/models"
	"github.com/viddify/viddify-backend/internal/store"
	"github.com/viddify/viddify-backend/pkg/utils"
)

// ChannelInfo is the only channel shape that ever leaves the server:
// identity and display name, never credential material.
type ChannelInfo struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
}

// VaultService manages delegated third-party channel credentials: linking via
// the external authorization flow, encrypted-at-rest storage, listing, and
// unlinking. Every operation is scoped to the acting user.
type VaultService struct {
	store  store.UserStore
	yt     YouTubeClient
	states StateStore
	key    []byte
}

func NewVaultService(st store.UserStore, yt YouTubeClient, states StateStore, masterKey []byte) *VaultService {
	return &VaultService{store: st, yt: yt, states: states, key: masterKey}
}

// AuthURL starts a link flow: a fresh nonce is bound to the user and carried
// as the OAuth state, so the unauthenticated callback can only attach the
// result to the account that initiated it.
func (s *VaultService) AuthURL(ctx context.Context, userID string) (string, error) {
	nonce := uuid.NewString()
	if err := s.states.Save(ctx, nonce, userID); err != nil {
		return "", err
	}
	return s.yt.AuthCodeURL(nonce), nil
}

// HandleCallback finishes a link flow: the state nonce is redeemed (single
// use) to recover the initiating user, then the code is exchanged and the
// resulting credentials stored.
func (s *VaultService) HandleCallback(ctx context.Context, code, state string) error {
	userID, err := s.states.Redeem(ctx, state)
	if err != nil {
		return ErrInvalidOrExpired
	}
	return s.Link(ctx, userID, code)
}

// Link exchanges the authorization code and appends the channel with its
// credentials encrypted under the master key and a fresh per-record IV.
// Re-linking an already-linked channel is a no-op, not a duplicate.
func (s *VaultService) Link(ctx context.Context, userID, code string) error {
	grant, err := s.yt.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: authorization exchange: %v", ErrDependency, err)
	}

	iv, err := utils.NewIV()
	if err != nil {
		return err
	}

	encAccess, err := utils.EncryptWithIV(grant.AccessToken, s.key, iv)
	if err != nil {
		return fmt.Errorf("encrypting access token: %w", err)
	}

	var encRefresh string
	if grant.RefreshToken != "" {
		encRefresh, err = utils.EncryptWithIV(grant.RefreshToken, s.key, iv)
		if err != nil {
			return fmt.Errorf("encrypting refresh token: %w", err)
		}
	}

	return s.store.AddChannel(ctx, userID, models.YouTubeChannel{
		ChannelID:    grant.ChannelID,
		ChannelName:  grant.ChannelName,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		IV:           hex.EncodeToString(iv),
	})
}

// Channels lists the user's linked channels, credential material redacted.
func (s *VaultService) Channels(ctx context.Context, userID string) ([]ChannelInfo, error) {
	channels, err := s.store.Channels(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ChannelInfo{ChannelID: ch.ChannelID, ChannelName: ch.ChannelName})
	}
	return out, nil
}

// Unlink removes the channel if present; an absent channel is a no-op.
func (s *VaultService) Unlink(ctx context.Context, userID, channelID string) error {
	return s.store.RemoveChannel(ctx, userID, channelID)
}

// AccessToken decrypts a stored channel credential for use against the
// external platform. A credential that no longer decrypts (key changed,
// record damaged) is reported as ErrRelinkRequired so callers can prompt the
// user to link again instead of failing opaquely.
func (s *VaultService) AccessToken(ctx context.Context, userID, channelID string) (string, error) {
	channels, err := s.store.Channels(ctx, userID)
	if err != nil {
		return "", err
	}

	for _, ch := range channels {
		if ch.ChannelID != channelID {
			continue
		}
		iv, err := hex.DecodeString(ch.IV)
		if err != nil {
			return "", ErrRelinkRequired
		}
		token, err := utils.DecryptWithIV(ch.AccessToken, s.key, iv)
		if err != nil {
			if errors.Is(err, utils.ErrDecryptFailed) {
				return "", ErrRelinkRequired
			}
			return "", err
		}
		return token, nil
	}

	return "", store.ErrNotFound
}
