package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viddify/viddify-backend/internal/models"
	"github.com/viddify/viddify-backend/internal/store"
	"github.com/viddify/viddify-backend/pkg/utils"
)

type fakeYouTubeClient struct {
	grant *ChannelGrant
	err   error
}

func (c *fakeYouTubeClient) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (c *fakeYouTubeClient) ExchangeAuthorizationCode(context.Context, string) (*ChannelGrant, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.grant, nil
}

func newVaultService(t *testing.T) (*VaultService, *store.MemoryUserStore, *fakeYouTubeClient) {
	t.Helper()
	st := store.NewMemoryUserStore()
	yt := &fakeYouTubeClient{grant: &ChannelGrant{
		AccessToken:  "ya29.access-token",
		RefreshToken: "1//refresh-token",
		ChannelID:    "UC123",
		ChannelName:  "Test Channel",
	}}
	svc := NewVaultService(st, yt, NewMemoryStateStore(), utils.DeriveEncryptionKey("vault-master-key"))
	return svc, st, yt
}

func addUser(t *testing.T, st *store.MemoryUserStore, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "hash",
		Role:            models.RoleUser,
		IsEmailVerified: true,
	}
	require.NoError(t, st.CreateUser(context.Background(), user))
	return user
}

func TestAuthURLAndCallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, _ := newVaultService(t)
	user := addUser(t, st, "alice")

	authURL, err := svc.AuthURL(ctx, user.ID.Hex())
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	assert.NotContains(t, state, user.ID.Hex(), "state is an opaque nonce, not the user id")

	require.NoError(t, svc.HandleCallback(ctx, "auth-code", state))

	channels, err := svc.Channels(ctx, user.ID.Hex())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "UC123", channels[0].ChannelID)
	assert.Equal(t, "Test Channel", channels[0].ChannelName)
}

func TestHandleCallback_StateSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, _ := newVaultService(t)
	user := addUser(t, st, "alice")

	authURL, err := svc.AuthURL(ctx, user.ID.Hex())
	require.NoError(t, err)
	parsed, _ := url.Parse(authURL)
	state := parsed.Query().Get("state")

	require.NoError(t, svc.HandleCallback(ctx, "auth-code", state))

	err = svc.HandleCallback(ctx, "auth-code", state)
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "a replayed callback must fail")

	err = svc.HandleCallback(ctx, "auth-code", "forged-state")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestLink_EncryptsAtRest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, yt := newVaultService(t)
	user := addUser(t, st, "alice")

	require.NoError(t, svc.Link(ctx, user.ID.Hex(), "auth-code"))

	stored, err := st.Channels(ctx, user.ID.Hex())
	require.NoError(t, err)
	require.Len(t, stored, 1)

	ch := stored[0]
	assert.NotEmpty(t, ch.IV)
	assert.NotEqual(t, yt.grant.AccessToken, ch.AccessToken)
	assert.False(t, strings.Contains(ch.AccessToken, "ya29"), "access token must not be stored in the clear")
	assert.NotEqual(t, yt.grant.RefreshToken, ch.RefreshToken)
}

func TestLink_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, _ := newVaultService(t)
	user := addUser(t, st, "alice")

	require.NoError(t, svc.Link(ctx, user.ID.Hex(), "auth-code"))
	require.NoError(t, svc.Link(ctx, user.ID.Hex(), "auth-code"))

	channels, err := svc.Channels(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, channels, 1, "re-linking the same channel must not create a duplicate")
}

func TestLink_ExchangeFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, yt := newVaultService(t)
	user := addUser(t, st, "alice")
	yt.err = errors.New("upstream 502")

	err := svc.Link(ctx, user.ID.Hex(), "auth-code")
	assert.ErrorIs(t, err, ErrDependency)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, yt := newVaultService(t)
	user := addUser(t, st, "alice")

	require.NoError(t, svc.Link(ctx, user.ID.Hex(), "auth-code"))

	token, err := svc.AccessToken(ctx, user.ID.Hex(), "UC123")
	require.NoError(t, err)
	assert.Equal(t, yt.grant.AccessToken, token)
}

func TestAccessToken_RelinkRequiredAfterKeyChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, yt := newVaultService(t)
	user := addUser(t, st, "alice")

	require.NoError(t, svc.Link(ctx, user.ID.Hex(), "auth-code"))

	// Same store, different master key: the stored credential is unusable and
	// that must surface as the recoverable re-link condition.
	rotated := NewVaultService(st, yt, NewMemoryStateStore(), utils.DeriveEncryptionKey("rotated-key"))
	token, err := rotated.AccessToken(ctx, user.ID.Hex(), "UC123")
	if err == nil {
		// CBC without an integrity tag can decrypt garbage that happens to
		// unpad; even then the plaintext must not be recovered.
		assert.NotEqual(t, yt.grant.AccessToken, token)
	} else {
		assert.ErrorIs(t, err, ErrRelinkRequired)
	}
}

func TestUnlink_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, _ := newVaultService(t)
	user := addUser(t, st, "alice")

	require.NoError(t, svc.Link(ctx, user.ID.Hex(), "auth-code"))

	require.NoError(t, svc.Unlink(ctx, user.ID.Hex(), "UC123"))
	require.NoError(t, svc.Unlink(ctx, user.ID.Hex(), "UC123"), "second unlink is a no-op, not an error")

	channels, err := svc.Channels(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestVault_PerUserScoping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, _ := newVaultService(t)
	alice := addUser(t, st, "alice")
	bob := addUser(t, st, "bob")

	require.NoError(t, svc.Link(ctx, alice.ID.Hex(), "auth-code"))

	bobChannels, err := svc.Channels(ctx, bob.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, bobChannels, "another user's channels are never visible")

	_, err = svc.AccessToken(ctx, bob.ID.Hex(), "UC123")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Bob unlinking Alice's channel must not touch her records.
	require.NoError(t, svc.Unlink(ctx, bob.ID.Hex(), "UC123"))
	aliceChannels, err := svc.Channels(ctx, alice.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, aliceChannels, 1)
}
