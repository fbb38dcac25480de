package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// YouTubeChannel is one linked channel embedded in the user document.
// AccessToken and RefreshToken are stored encrypted under the process master
// key combined with the per-record IV; they never leave the server in any
// response.
type YouTubeChannel struct {
	ChannelID    string `bson:"channelId" json:"channelId"`
	ChannelName  string `bson:"channelName" json:"channelName"`
	AccessToken  string `bson:"accessToken" json:"-"`
	RefreshToken string `bson:"refreshToken,omitempty" json:"-"`
	IV           string `bson:"iv" json:"-"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"` // always stored lowercase
	Password string `bson:"password" json:"-"`  // argon2id hash, never the plaintext
	Avatar   string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Role     string `bson:"role" json:"role"` // "user" or "admin"

	IsEmailVerified bool `bson:"isEmailVerified" json:"isEmailVerified"`

	// Single-use email-verification slot. Only the SHA-256 hash of a token is
	// ever stored; both fields are cleared together on redemption.
	EmailVerificationToken        string     `bson:"emailVerificationToken,omitempty" json:"-"`
	EmailVerificationTokenExpires *time.Time `bson:"emailVerificationTokenExpires,omitempty" json:"-"`

	// Live cross-origin exchange tokens. Multiple tokens can be outstanding
	// at once; each is consumed independently on first redemption.
	SSOTokens []ExchangeToken `bson:"ssoTokens,omitempty" json:"-"`

	YouTubeChannels []YouTubeChannel `bson:"youtubeChannels,omitempty" json:"-"`
}

// ExchangeToken is the persisted form of a cross-origin exchange token: the
// hash of the raw value plus its expiry. The raw value itself only ever
// appears in the redirect handed to the client.
type ExchangeToken struct {
	TokenHash string    `bson:"tokenHash" json:"-"`
	ExpiresAt time.Time `bson:"expiresAt" json:"-"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// DefaultAvatar is used until the user uploads their own.
	DefaultAvatar = "https://placehold.co/200x200/EFEFEF/333333?text=User"
)
