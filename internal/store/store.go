package store

import (
	"context"
	"errors"
	"time"

	"github.com/viddify/viddify-backend/internal/models"
)

var (
	// ErrNotFound covers a missing user as well as a token hash that matches
	// no live record (unknown, already consumed, or expired).
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint on username or email
	// is violated.
	ErrDuplicate = errors.New("username or email already exists")
)

// UserStore is the persistence boundary for user identity records and the
// single-use token slots embedded in them. Redeem operations are atomic
// find-and-clear: under concurrent redemption of the same hash exactly one
// caller wins, the rest see ErrNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	// UserByLogin resolves a user by email (case-insensitive) or username.
	UserByLogin(ctx context.Context, login string) (*models.User, error)

	UpdateProfile(ctx context.Context, id, username, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*models.User, error)

	SetVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	// RedeemVerificationToken marks the email verified and clears the token
	// slot in one operation.
	RedeemVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	// AddExchangeToken records a new live exchange token for the user.
	// Outstanding tokens are independent of each other; adding one never
	// invalidates another.
	AddExchangeToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	// RedeemExchangeToken removes the matching unexpired token and returns
	// the bound user in one operation.
	RedeemExchangeToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	// AddChannel appends a linked channel unless one with the same channelId
	// already exists for the user (idempotent).
	AddChannel(ctx context.Context, id string, ch models.YouTubeChannel) error
	Channels(ctx context.Context, id string) ([]models.YouTubeChannel, error)
	// RemoveChannel deletes the matching channel; an absent channel is a no-op.
	RemoveChannel(ctx context.Context, id, channelID string) error
}
