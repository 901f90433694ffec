package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/userz/internal/app/system/normalize"
	"github.com/dalemusser/userz/internal/app/system/personname"
	"github.com/dalemusser/userz/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the users collection.
const Collection = "users"

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername is returned when attempting to create a user with a username that already exists.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrUsernameRequired is returned when a user has no username.
	ErrUsernameRequired = errors.New("username is required")
	// ErrPasswordRequired is returned when a user has no password hash.
	ErrPasswordRequired = errors.New("password hash is required")
	// ErrSuffixTooLong is returned when a name suffix exceeds personname.MaxSuffixLen characters.
	ErrSuffixTooLong = errors.New("name suffix must be at most 3 characters")
	// ErrSelfContact is returned when a user is added to their own contacts.
	ErrSelfContact = errors.New("a user cannot be their own contact")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByUsername looks up a user by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username_ci": normalize.Key(username)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UsernameExists reports whether any user already has username (case-insensitive).
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"username_ci": normalize.Key(username)},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// Create inserts a new user after normalizing & validating fields.
// PasswordHash must already be a digest; the store never sees plaintext.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	// Normalize core fields
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = normalize.Key(u.Username)
	u.Email = normalize.Email(u.Email)
	u.SetNameParts(normalize.Parts(u.NameParts()))
	u.FullNameCI = fullNameKey(u.NameParts())

	// Required fields
	if u.Username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if u.PasswordHash == "" {
		return models.User{}, ErrPasswordRequired
	}
	if err := checkName(u.NameParts()); err != nil {
		return models.User{}, err
	}

	// Uniqueness
	exists, err := s.UsernameExists(ctx, u.Username)
	if err != nil {
		return models.User{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return models.User{}, ErrDuplicateUsername
	}

	// Timestamps
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	// Insert
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, err
	}
	return u, nil
}

// UpdateName replaces the four name fields. The normalized parts are returned.
func (s *Store) UpdateName(ctx context.Context, id primitive.ObjectID, p personname.Parts) (personname.Parts, error) {
	p = normalize.Parts(p)
	if err := checkName(p); err != nil {
		return personname.Parts{}, err
	}
	set := bson.M{
		"first_name":   p.First,
		"middle_name":  p.Middle,
		"last_name":    p.Last,
		"name_suffix":  p.Suffix,
		"full_name_ci": fullNameKey(p),
		"updated_at":   time.Now().UTC(),
	}
	if err := s.updateOne(ctx, id, bson.M{"$set": set}); err != nil {
		return personname.Parts{}, err
	}
	return p, nil
}

// checkName enforces the suffix length the users validator also requires.
func checkName(p personname.Parts) error {
	if utf8.RuneCountInString(p.Suffix) > personname.MaxSuffixLen {
		return ErrSuffixTooLong
	}
	return nil
}

// UpdatePasswordHash stores a new password digest.
func (s *Store) UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	if hash == "" {
		return ErrPasswordRequired
	}
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
}

// UpdateEmail sets the user's email (normalized). An empty email clears it.
func (s *Store) UpdateEmail(ctx context.Context, id primitive.ObjectID, email string) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{
		"email":      normalize.Email(email),
		"updated_at": time.Now().UTC(),
	}})
}

func (s *Store) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddContact adds contactID to the user's contacts. Adding an existing
// contact is a no-op. The contact must exist.
func (s *Store) AddContact(ctx context.Context, id, contactID primitive.ObjectID) error {
	if id == contactID {
		return ErrSelfContact
	}
	if err := s.c.FindOne(ctx, bson.M{"_id": contactID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return s.updateOne(ctx, id, bson.M{
		"$addToSet": bson.M{"contacts": contactID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveContact removes contactID from the user's contacts. Removing a
// contact that is not present is a no-op.
func (s *Store) RemoveContact(ctx context.Context, id, contactID primitive.ObjectID) error {
	return s.updateOne(ctx, id, bson.M{
		"$pull": bson.M{"contacts": contactID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// ListContacts loads the user's contacts sorted by name. Contacts that no
// longer exist are skipped.
func (s *Store) ListContacts(ctx context.Context, id primitive.ObjectID) ([]models.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(u.Contacts) == 0 {
		return []models.User{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": u.Contacts}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a user and pulls it from every other user's contacts.
// Returns the number of users deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount == 0 {
		return 0, nil
	}
	if _, err := s.c.UpdateMany(ctx,
		bson.M{"contacts": id},
		bson.M{"$pull": bson.M{"contacts": id}},
	); err != nil {
		return res.DeletedCount, fmt.Errorf("remove deleted user from contacts: %w", err)
	}
	return res.DeletedCount, nil
}

func fullNameKey(p personname.Parts) string {
	return normalize.Key(personname.DisplayName(p))
}
