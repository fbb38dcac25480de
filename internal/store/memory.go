package store

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/viddify/viddify-backend/internal/models"
	"github.com/viddify/viddify-backend/pkg/utils"
)

// MemoryUserStore is an in-memory UserStore used by tests. It enforces the
// same uniqueness and atomic redeem semantics as the Mongo implementation.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

func (s *MemoryUserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	cp := *user
	s.users[user.ID.Hex()] = &cp
	return nil
}

func (s *MemoryUserStore) UserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyOf(id)
}

func (s *MemoryUserStore) UserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := utils.NormalizeEmail(login)
	for _, u := range s.users {
		if u.Email == email || u.Username == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) UpdateProfile(_ context.Context, id, username, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	email = utils.NormalizeEmail(email)
	for otherID, other := range s.users {
		if otherID == id {
			continue
		}
		if other.Username == username || other.Email == email {
			return nil, ErrDuplicate
		}
	}

	u.Username = username
	u.Email = email
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Avatar = avatarURL
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) SetVerificationToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.EmailVerificationToken = tokenHash
	u.EmailVerificationTokenExpires = &expires
	return nil
}

func (s *MemoryUserStore) RedeemVerificationToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.EmailVerificationToken != tokenHash {
			continue
		}
		if u.EmailVerificationTokenExpires == nil || !u.EmailVerificationTokenExpires.After(now) {
			return nil, ErrNotFound
		}
		u.IsEmailVerified = true
		u.EmailVerificationToken = ""
		u.EmailVerificationTokenExpires = nil
		u.UpdatedAt = now
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) AddExchangeToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}

	now := time.Now()
	live := u.SSOTokens[:0]
	for _, tok := range u.SSOTokens {
		if tok.ExpiresAt.After(now) {
			live = append(live, tok)
		}
	}
	u.SSOTokens = append(live, models.ExchangeToken{TokenHash: tokenHash, ExpiresAt: expires})
	return nil
}

func (s *MemoryUserStore) RedeemExchangeToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		for i, tok := range u.SSOTokens {
			if tok.TokenHash != tokenHash {
				continue
			}
			if !tok.ExpiresAt.After(now) {
				return nil, ErrNotFound
			}
			u.SSOTokens = append(u.SSOTokens[:i], u.SSOTokens[i+1:]...)
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) AddChannel(_ context.Context, id string, ch models.YouTubeChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, existing := range u.YouTubeChannels {
		if existing.ChannelID == ch.ChannelID {
			return nil
		}
	}
	u.YouTubeChannels = append(u.YouTubeChannels, ch)
	return nil
}

func (s *MemoryUserStore) Channels(_ context.Context, id string) ([]models.YouTubeChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]models.YouTubeChannel, len(u.YouTubeChannels))
	copy(out, u.YouTubeChannels)
	return out, nil
}

func (s *MemoryUserStore) RemoveChannel(_ context.Context, id, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	kept := u.YouTubeChannels[:0]
	for _, ch := range u.YouTubeChannels {
		if ch.ChannelID != channelID {
			kept = append(kept, ch)
		}
	}
	u.YouTubeChannels = kept
	return nil
}

func (s *MemoryUserStore) copyOf(id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	cp.YouTubeChannels = make([]models.YouTubeChannel, len(u.YouTubeChannels))
	copy(cp.YouTubeChannels, u.YouTubeChannels)
	return &cp, nil
}
