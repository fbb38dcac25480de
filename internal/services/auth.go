package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viddify/viddify-backend/internal/models"
	"github.com/viddify/viddify-backend/internal/store"
	"github.com/viddify/viddify-backend/pkg/utils"
)

const (
	// VerificationTokenValidity bounds how long an emailed proof-of-ownership
	// link stays redeemable.
	VerificationTokenValidity = 10 * time.Minute
	// ExchangeTokenValidity bounds the window between the redirect leaving
	// origin A and the redemption arriving on origin B.
	ExchangeTokenValidity = 2 * time.Minute
)

// ErrDependency marks a failed call to an external collaborator (mail
// delivery, authorization exchange). Logged by handlers, never retried here.
var ErrDependency = errors.New("upstream dependency failed")

// ValidationErrors carries field-level detail for a 400 response.
type ValidationErrors []*utils.ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// AuthService implements credential issuance and verification, the email
// ownership gate, and the cross-origin exchange-token flow.
type AuthService struct {
	store       store.UserStore
	mailer      Mailer
	tokens      *TokenService
	frontendURL string
}

func NewAuthService(st store.UserStore, mailer Mailer, tokens *TokenService, frontendURL string) *AuthService {
	return &AuthService{
		store:       st,
		mailer:      mailer,
		tokens:      tokens,
		frontendURL: frontendURL,
	}
}

// Register creates an unverified account and sends the proof-of-ownership
// email. Uniqueness of username and email is enforced by the store's unique
// indexes, so a losing racer gets store.ErrDuplicate, never a partial write.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	var fieldErrs ValidationErrors
	if err := utils.ValidateUsername(username); err != nil {
		fieldErrs = append(fieldErrs, err.(*utils.ValidationError))
	}
	if err := utils.ValidateEmail(email); err != nil {
		fieldErrs = append(fieldErrs, err.(*utils.ValidationError))
	}
	if err := utils.ValidatePassword(password); err != nil {
		fieldErrs = append(fieldErrs, err.(*utils.ValidationError))
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Username:        username,
		Email:           utils.NormalizeEmail(email),
		Password:        hash,
		Avatar:          models.DefaultAvatar,
		Role:            models.RoleUser,
		IsEmailVerified: false,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerificationEmail(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// VerifyEmail redeems an emailed verification token. The matching record is
// cleared in the same store operation, so a link works exactly once.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (*models.User, error) {
	user, err := s.store.RedeemVerificationToken(ctx, utils.HashToken(rawToken), time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and mints a session token. Credential-correct
// logins against an unverified account fail distinctly, and a fresh
// verification email goes out so the user can complete activation.
func (s *AuthService) Login(ctx context.Context, login, password string) (*models.User, string, error) {
	user, err := s.store.UserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		// Best effort: a failed resend must not mask the unverified error.
		_ = s.sendVerificationEmail(ctx, user)
		return nil, "", ErrEmailNotVerified
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("issuing session token: %w", err)
	}

	return user, token, nil
}

// GenerateExchangeToken creates a short-lived single-use token bound to the
// user, for embedding in the redirect to the application origin. Only its
// hash is stored; outstanding tokens for the same user stay independent.
func (s *AuthService) GenerateExchangeToken(ctx context.Context, userID string) (string, error) {
	raw, err := utils.NewRawToken()
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(ExchangeTokenValidity)
	if err := s.store.AddExchangeToken(ctx, userID, utils.HashToken(raw), expires); err != nil {
		return "", err
	}

	return raw, nil
}

// RedeemExchangeToken converts a raw exchange token into a fresh session for
// its bound user. The store's find-and-clear is atomic: of two racing
// redemptions of the same raw value exactly one succeeds.
func (s *AuthService) RedeemExchangeToken(ctx context.Context, rawToken string) (*models.User, string, error) {
	user, err := s.store.RedeemExchangeToken(ctx, utils.HashToken(rawToken), time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidOrExpired
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("issuing session token: %w", err)
	}

	return user, token, nil
}

// Profile returns the current stored state of the user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.store.UserByID(ctx, userID)
}

// UpdateProfile changes username and/or email; blank fields keep their
// current value. Email changes re-check uniqueness via the store.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, username, email string) (*models.User, error) {
	current, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = current.Username
	} else if err := utils.ValidateUsername(username); err != nil {
		return nil, ValidationErrors{err.(*utils.ValidationError)}
	}

	if email == "" {
		email = current.Email
	} else if err := utils.ValidateEmail(email); err != nil {
		return nil, ValidationErrors{err.(*utils.ValidationError)}
	}

	return s.store.UpdateProfile(ctx, userID, username, email)
}

// UpdatePassword replaces the stored hash after the current password checks
// out.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := utils.VerifyPassword(currentPassword, user.Password)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if err := utils.ValidatePassword(newPassword); err != nil {
		return ValidationErrors{err.(*utils.ValidationError)}
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.store.UpdatePassword(ctx, userID, hash)
}

// UpdateAvatar stores the new avatar URL and returns the updated user.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID, avatarURL string) (*models.User, error) {
	return s.store.UpdateAvatar(ctx, userID, avatarURL)
}

// sendVerificationEmail issues a fresh token (hash stored, raw mailed) and
// hands the raw value to the mail collaborator.
func (s *AuthService) sendVerificationEmail(ctx context.Context, user *models.User) error {
	raw, err := utils.NewRawToken()
	if err != nil {
		return err
	}

	expires := time.Now().Add(VerificationTokenValidity)
	if err := s.store.SetVerificationToken(ctx, user.ID.Hex(), utils.HashToken(raw), expires); err != nil {
		return err
	}

	link := s.frontendURL + "/verify-email/" + raw
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Please confirm your email address by clicking the link below. The link expires in 10 minutes.</p><p><a href="%s">Verify your email</a></p>`,
		user.Username, link,
	)

	if err := s.mailer.Send(ctx, user.Email, "Verify your email address", body); err != nil {
		return fmt.Errorf("%w: sending verification email: %v", ErrDependency, err)
	}

	return nil
}
