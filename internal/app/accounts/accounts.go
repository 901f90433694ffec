// internal/app/accounts/accounts.go

// Package accounts ties the user store, the password hasher, the name
// formatter and the audit log together into the account operations the CLI
// exposes.
package accounts

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/userz/internal/app/store/users"
	"github.com/dalemusser/userz/internal/app/system/auditlog"
	"github.com/dalemusser/userz/internal/app/system/normalize"
	"github.com/dalemusser/userz/internal/app/system/passwords"
	"github.com/dalemusser/userz/internal/app/system/personname"
	"github.com/dalemusser/userz/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrWrongPassword is returned by ChangePassword when the current password does not match.
	ErrWrongPassword = errors.New("current password is incorrect")
)

// Users is the record store the service needs. *userstore.Store satisfies it.
type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateName(ctx context.Context, id primitive.ObjectID, p personname.Parts) (personname.Parts, error)
	UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	UpdateEmail(ctx context.Context, id primitive.ObjectID, email string) error
	AddContact(ctx context.Context, id, contactID primitive.ObjectID) error
	RemoveContact(ctx context.Context, id, contactID primitive.ObjectID) error
	ListContacts(ctx context.Context, id primitive.ObjectID) ([]models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Service implements account operations.
type Service struct {
	users     Users
	hasher    passwords.Hasher
	audit     *auditlog.Logger
	formatter personname.Formatter
	log       *zap.Logger
}

// New builds a Service. audit may be nil.
func New(users Users, hasher passwords.Hasher, audit *auditlog.Logger, formatter personname.Formatter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		audit:     audit,
		formatter: formatter,
		log:       logger,
	}
}

// Registration is the input to Register. FullName is decomposed into any
// name fields left empty in Parts.
type Registration struct {
	Username string
	Password string
	Email    string
	FullName string
	Parts    personname.Parts
}

// Register hashes the password, fills the name and creates the user.
func (s *Service) Register(ctx context.Context, r Registration) (models.User, error) {
	hash, err := s.hasher.Hash(r.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		Username:     r.Username,
		PasswordHash: hash,
		Email:        r.Email,
	}
	u.SetNameParts(personname.Decompose(normalize.Name(r.FullName), r.Parts))

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return models.User{}, err
	}

	s.log.Info("user registered",
		zap.String("user_id", created.ID.Hex()),
		zap.String("username", created.Username))
	s.audit.UserCreated(ctx, created.ID, created.Username)
	return created, nil
}

// Get loads a user by username.
func (s *Service) Get(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// SetFullName applies free text to the user's name. Only an unclaimed
// record (nothing beyond a first name) is filled; otherwise the stored name
// is kept. The resulting parts are returned either way.
func (s *Service) SetFullName(ctx context.Context, id primitive.ObjectID, fullName string) (personname.Parts, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return personname.Parts{}, err
	}

	before := u.NameParts()
	after := personname.Decompose(normalize.Name(fullName), before)
	if after == before {
		s.log.Debug("name unchanged",
			zap.String("user_id", id.Hex()),
			zap.Bool("claimed", before.Claimed()))
		return before, nil
	}
	return s.saveName(ctx, id, before, after)
}

// SetNameParts replaces the structured name outright.
func (s *Service) SetNameParts(ctx context.Context, id primitive.ObjectID, p personname.Parts) (personname.Parts, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return personname.Parts{}, err
	}
	return s.saveName(ctx, id, u.NameParts(), p)
}

// NamePatch lists name fields to change. Nil fields keep their stored value.
type NamePatch struct {
	First  *string
	Middle *string
	Last   *string
	Suffix *string
}

// Apply returns p with the patched fields replaced.
func (np NamePatch) Apply(p personname.Parts) personname.Parts {
	if np.First != nil {
		p.First = *np.First
	}
	if np.Middle != nil {
		p.Middle = *np.Middle
	}
	if np.Last != nil {
		p.Last = *np.Last
	}
	if np.Suffix != nil {
		p.Suffix = *np.Suffix
	}
	return p
}

// PatchName changes only the fields set in patch.
func (s *Service) PatchName(ctx context.Context, id primitive.ObjectID, patch NamePatch) (personname.Parts, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return personname.Parts{}, err
	}
	before := u.NameParts()
	return s.saveName(ctx, id, before, patch.Apply(before))
}

func (s *Service) saveName(ctx context.Context, id primitive.ObjectID, before, after personname.Parts) (personname.Parts, error) {
	saved, err := s.users.UpdateName(ctx, id, after)
	if err != nil {
		return personname.Parts{}, err
	}
	s.audit.NameChanged(ctx, id, personname.DisplayName(before), personname.DisplayName(saved))
	return saved, nil
}

// SetEmail changes the user's email address.
func (s *Service) SetEmail(ctx context.Context, id primitive.ObjectID, email string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.UpdateEmail(ctx, id, email); err != nil {
		return err
	}
	s.audit.EmailChanged(ctx, id, u.Email, normalize.Email(email))
	return nil
}

// VerifyPassword checks password for username. An unknown user or a wrong
// password yields false with a nil error; only a verification fault (for
// example a corrupt stored digest) is returned as an error.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) (*models.User, bool, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, userstore.ErrNotFound) {
		s.audit.PasswordUnknownUser(ctx, username)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	ok, err := passwords.Await(s.hasher.VerifyAsync(ctx, password, u.PasswordHash))
	if err != nil {
		var verr *passwords.VerificationError
		if errors.As(err, &verr) {
			s.log.Error("password verification fault",
				zap.String("user_id", u.ID.Hex()),
				zap.Error(err))
			s.audit.PasswordVerifyFault(ctx, u.ID, u.Username, err)
		}
		return u, false, err
	}

	if !ok {
		s.audit.PasswordMismatch(ctx, u.ID, u.Username)
		return u, false, nil
	}
	s.audit.PasswordVerified(ctx, u.ID, u.Username)
	return u, true, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := passwords.Await(s.hasher.VerifyAsync(ctx, current, u.PasswordHash))
	if err != nil {
		return err
	}
	if !ok {
		s.audit.PasswordChangeRejected(ctx, id)
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, id, hash); err != nil {
		return err
	}
	s.audit.PasswordChanged(ctx, id)
	return nil
}

// ClientUser returns the non-secret view of u.
func (s *Service) ClientUser(u models.User, splitName bool) models.ClientUser {
	return u.ClientView(splitName)
}

// DisplayName renders u's name with the service's configured formatter.
func (s *Service) DisplayName(u models.User) string {
	return s.formatter.Format(u.NameParts())
}

// AddContact adds the user named contact to id's contacts.
func (s *Service) AddContact(ctx context.Context, id primitive.ObjectID, contact string) (*models.User, error) {
	c, err := s.users.GetByUsername(ctx, contact)
	if err != nil {
		return nil, err
	}
	if err := s.users.AddContact(ctx, id, c.ID); err != nil {
		return nil, err
	}
	s.audit.ContactAdded(ctx, id, c.ID)
	return c, nil
}

// RemoveContact removes the user named contact from id's contacts.
func (s *Service) RemoveContact(ctx context.Context, id primitive.ObjectID, contact string) error {
	c, err := s.users.GetByUsername(ctx, contact)
	if err != nil {
		return err
	}
	if err := s.users.RemoveContact(ctx, id, c.ID); err != nil {
		return err
	}
	s.audit.ContactRemoved(ctx, id, c.ID)
	return nil
}

// Contacts lists id's contacts.
func (s *Service) Contacts(ctx context.Context, id primitive.ObjectID) ([]models.User, error) {
	return s.users.ListContacts(ctx, id)
}

// Delete removes the user.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return userstore.ErrNotFound
	}
	s.audit.UserDeleted(ctx, id, u.Username)
	return nil
}
