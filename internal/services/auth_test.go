package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viddify/viddify-backend/internal/models"
	"github.com/viddify/viddify-backend/internal/store"
	"github.com/viddify/viddify-backend/pkg/utils"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// lastToken pulls the raw verification token out of the most recent mail.
func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)

	body := m.sent[len(m.sent)-1].body
	_, after, found := strings.Cut(body, "/verify-email/")
	require.True(t, found, "mail body has no verification link: %s", body)
	token, _, found := strings.Cut(after, `"`)
	require.True(t, found)
	return token
}

func newAuthService(t *testing.T) (*AuthService, *store.MemoryUserStore, *fakeMailer) {
	t.Helper()
	st := store.NewMemoryUserStore()
	mailer := &fakeMailer{}
	tokens := NewTokenService([]byte("test-secret"))
	return NewAuthService(st, mailer, tokens, "http://localhost:3000"), st, mailer
}

func registerVerified(t *testing.T, svc *AuthService, mailer *fakeMailer, username, email string) *models.User {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Register(ctx, username, email, "password123")
	require.NoError(t, err)

	verified, err := svc.VerifyEmail(ctx, mailer.lastToken(t))
	require.NoError(t, err)
	return verified
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, mailer := newAuthService(t)

	user, err := svc.Register(ctx, "alice", "Alice@Example.COM", "password123")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email, "email is stored lowercase")
	assert.False(t, user.IsEmailVerified)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.Password, "plaintext password must not be stored")
	assert.NotContains(t, user.Password, "password123")

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "alice@example.com", mailer.sent[0].to)

	// The store holds the token hash; the mail carries only the raw token.
	stored, err := st.UserByID(ctx, user.ID.Hex())
	require.NoError(t, err)
	require.NotEmpty(t, stored.EmailVerificationToken)
	assert.NotContains(t, mailer.sent[0].body, stored.EmailVerificationToken,
		"mail carries the raw token, never the stored hash")
	assert.Equal(t, stored.EmailVerificationToken, utils.HashToken(mailer.lastToken(t)))
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newAuthService(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		field    string
	}{
		{"empty username", "", "a@b.com", "password123", "username"},
		{"bad email", "alice", "not-an-email", "password123", "email"},
		{"short password", "alice", "a@b.com", "12345", "password"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)

			var fieldErrs ValidationErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.NotEmpty(t, fieldErrs)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newAuthService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@example.com", "password123")
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = svc.Register(ctx, "other", "alice@example.com", "password123")
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestRegister_MailerDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	mailer.fail = true

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrDependency)
}

func TestLogin_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)

	registered := registerVerified(t, svc, mailer, "alice", "alice@example.com")

	// by email
	user, token, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	subject, err := NewTokenService([]byte("test-secret")).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID.Hex(), subject)

	// by username
	_, _, err = svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
}

func TestLogin_UnverifiedGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, 1, mailer.count())

	_, _, err = svc.Login(ctx, "alice", "password123")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	assert.Equal(t, 2, mailer.count(), "unverified login resends the verification email")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	registerVerified(t, svc, mailer, "alice", "alice@example.com")

	_, _, err := svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	token := mailer.lastToken(t)

	user, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.IsEmailVerified)
	assert.Empty(t, user.EmailVerificationToken, "token slot is cleared on redemption")

	_, err = svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestVerifyEmail_Expired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, mailer := newAuthService(t)

	user, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	_ = mailer

	raw, err := utils.NewRawToken()
	require.NoError(t, err)
	require.NoError(t, st.SetVerificationToken(ctx, user.ID.Hex(), utils.HashToken(raw), time.Now().Add(-time.Second)))

	_, err = svc.VerifyEmail(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestExchangeToken_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	user := registerVerified(t, svc, mailer, "alice", "alice@example.com")

	raw, err := svc.GenerateExchangeToken(ctx, user.ID.Hex())
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	redeemed, token, err := svc.RedeemExchangeToken(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, redeemed.ID)

	subject, err := NewTokenService([]byte("test-secret")).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), subject)
}

func TestExchangeToken_SingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	user := registerVerified(t, svc, mailer, "alice", "alice@example.com")

	raw, err := svc.GenerateExchangeToken(ctx, user.ID.Hex())
	require.NoError(t, err)

	_, _, err = svc.RedeemExchangeToken(ctx, raw)
	require.NoError(t, err)

	_, _, err = svc.RedeemExchangeToken(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestExchangeToken_ConcurrentRedemption(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	user := registerVerified(t, svc, mailer, "alice", "alice@example.com")

	raw, err := svc.GenerateExchangeToken(ctx, user.ID.Hex())
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.RedeemExchangeToken(ctx, raw)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, ErrInvalidOrExpired) {
			losses++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one racing redemption may succeed")
	assert.Equal(t, racers-1, losses)
}

func TestExchangeToken_Expired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, mailer := newAuthService(t)
	user := registerVerified(t, svc, mailer, "alice", "alice@example.com")

	raw, err := utils.NewRawToken()
	require.NoError(t, err)
	require.NoError(t, st.AddExchangeToken(ctx, user.ID.Hex(), utils.HashToken(raw), time.Now().Add(-time.Second)))

	_, _, err = svc.RedeemExchangeToken(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestExchangeToken_IndependentTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	user := registerVerified(t, svc, mailer, "alice", "alice@example.com")

	first, err := svc.GenerateExchangeToken(ctx, user.ID.Hex())
	require.NoError(t, err)
	second, err := svc.GenerateExchangeToken(ctx, user.ID.Hex())
	require.NoError(t, err)

	_, _, err = svc.RedeemExchangeToken(ctx, first)
	require.NoError(t, err, "consuming one token must not invalidate the other")

	_, _, err = svc.RedeemExchangeToken(ctx, second)
	require.NoError(t, err)
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	user := registerVerified(t, svc, mailer, "alice", "alice@example.com")

	err := svc.UpdatePassword(ctx, user.ID.Hex(), "wrong-current", "newpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.UpdatePassword(ctx, user.ID.Hex(), "password123", "newpassword1")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "alice", "newpassword1")
	assert.NoError(t, err)
}

func TestUpdateProfile_EmailConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, mailer := newAuthService(t)
	alice := registerVerified(t, svc, mailer, "alice", "alice@example.com")
	registerVerified(t, svc, mailer, "bob", "bob@example.com")

	_, err := svc.UpdateProfile(ctx, alice.ID.Hex(), "", "bob@example.com")
	assert.ErrorIs(t, err, store.ErrDuplicate)

	updated, err := svc.UpdateProfile(ctx, alice.ID.Hex(), "alice2", "")
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "alice@example.com", updated.Email)
}
