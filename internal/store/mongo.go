package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viddify/viddify-backend/internal/models"
	"github.com/viddify/viddify-backend/pkg/utils"
)

// MongoUserStore stores each user as a single document with the linked
// channels embedded, so channel updates and token redemptions are
// single-document (and therefore atomic) operations.
type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{col: db.Collection("users")}
}

// EnsureIndexes creates the unique indexes on username and email. Uniqueness
// is enforced here, by the store, so registration is never a check-then-act
// race in application code.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

func (s *MongoUserStore) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := s.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoUserStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoUserStore) UserByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": utils.NormalizeEmail(login)},
		bson.M{"username": login},
	}})
}

func (s *MongoUserStore) UpdateProfile(ctx context.Context, id, username, email string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"username":   username,
			"email":      utils.NormalizeEmail(email),
			"updated_at": time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var user models.User
	if err := res.Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"password":   passwordHash,
		"updated_at": time.Now(),
	}})
}

func (s *MongoUserStore) UpdateAvatar(ctx context.Context, id, avatarURL string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"avatar": avatarURL, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var user models.User
	if err := res.Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) SetVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"emailVerificationToken":        tokenHash,
		"emailVerificationTokenExpires": expires,
	}})
}

func (s *MongoUserStore) RedeemVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{
			"emailVerificationToken":        tokenHash,
			"emailVerificationTokenExpires": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"isEmailVerified": true, "updated_at": now},
			"$unset": bson.M{"emailVerificationToken": "", "emailVerificationTokenExpires": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var user models.User
	if err := res.Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AddExchangeToken appends a live token and prunes already-expired ones in
// the same update, so stale hashes do not accumulate on the document.
func (s *MongoUserStore) AddExchangeToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	if err := s.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"ssoTokens": bson.M{"expiresAt": bson.M{"$lte": time.Now()}}},
	}); err != nil {
		return err
	}
	return s.updateByID(ctx, id, bson.M{
		"$push": bson.M{"ssoTokens": models.ExchangeToken{TokenHash: tokenHash, ExpiresAt: expires}},
	})
}

// RedeemExchangeToken is a single findAndModify keyed on the token hash with
// an unexpired guard; the matched element is pulled from the array in the
// same operation, so two racing redemptions of one raw value can never both
// succeed, and consuming one token leaves the user's other live tokens
// untouched.
func (s *MongoUserStore) RedeemExchangeToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{
			"ssoTokens": bson.M{"$elemMatch": bson.M{
				"tokenHash": tokenHash,
				"expiresAt": bson.M{"$gt": now},
			}},
		},
		bson.M{
			"$pull": bson.M{"ssoTokens": bson.M{"tokenHash": tokenHash}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var user models.User
	if err := res.Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) AddChannel(ctx context.Context, id string, ch models.YouTubeChannel) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	// Guard in the filter keeps the append idempotent: a user that already
	// has the channel simply does not match.
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid, "youtubeChannels.channelId": bson.M{"$ne": ch.ChannelID}},
		bson.M{"$push": bson.M{"youtubeChannels": ch}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the user does not exist or the channel is already linked.
		count, err := s.col.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *MongoUserStore) Channels(ctx context.Context, id string) ([]models.YouTubeChannel, error) {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.YouTubeChannels, nil
}

func (s *MongoUserStore) RemoveChannel(ctx context.Context, id, channelID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"youtubeChannels": bson.M{"channelId": channelID}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
