package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/userz/internal/app/system/personname"
	"github.com/dalemusser/userz/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the plaintext password of every fixture user.
const FixturePassword = "fixture-password"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// PasswordHash returns a low-cost bcrypt digest of password.
func (f *Fixtures) PasswordHash(password string) string {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}
	return string(hash)
}

// CreateUser inserts a user directly, bypassing the store's validation.
// The password is FixturePassword.
func (f *Fixtures) CreateUser(ctx context.Context, username string, name personname.Parts) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		UsernameCI:   text.Fold(username),
		PasswordHash: f.PasswordHash(FixturePassword),
		Email:        username + "@example.com",
		FullNameCI:   text.Fold(personname.DisplayName(name)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.SetNameParts(name)

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateNamedUser creates a user whose parts are parsed from fullName.
func (f *Fixtures) CreateNamedUser(ctx context.Context, username, fullName string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, username, personname.Parse(fullName))
}
