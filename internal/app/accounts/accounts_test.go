package accounts_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/dalemusser/userz/internal/app/accounts"
	userstore "github.com/dalemusser/userz/internal/app/store/users"
	"github.com/dalemusser/userz/internal/app/system/auditlog"
	"github.com/dalemusser/userz/internal/app/system/normalize"
	"github.com/dalemusser/userz/internal/app/system/passwords"
	"github.com/dalemusser/userz/internal/app/system/personname"
	"github.com/dalemusser/userz/internal/domain/models"
	"github.com/dalemusser/userz/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

// memUsers is an in-memory accounts.Users.
type memUsers struct {
	byID map[primitive.ObjectID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[primitive.ObjectID]*models.User{}}
}

func (m *memUsers) Create(_ context.Context, u models.User) (models.User, error) {
	if u.Username == "" {
		return models.User{}, userstore.ErrUsernameRequired
	}
	for _, existing := range m.byID {
		if existing.UsernameCI == normalize.Key(u.Username) {
			return models.User{}, userstore.ErrDuplicateUsername
		}
	}
	u.ID = primitive.NewObjectID()
	u.UsernameCI = normalize.Key(u.Username)
	m.byID[u.ID] = &u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.byID {
		if u.UsernameCI == normalize.Key(username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (m *memUsers) UpdateName(_ context.Context, id primitive.ObjectID, p personname.Parts) (personname.Parts, error) {
	u, ok := m.byID[id]
	if !ok {
		return personname.Parts{}, userstore.ErrNotFound
	}
	u.SetNameParts(p)
	return p, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) UpdateEmail(_ context.Context, id primitive.ObjectID, email string) error {
	u, ok := m.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	u.Email = normalize.Email(email)
	return nil
}

func (m *memUsers) AddContact(_ context.Context, id, contactID primitive.ObjectID) error {
	u, ok := m.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	if !u.HasContact(contactID) {
		u.Contacts = append(u.Contacts, contactID)
	}
	return nil
}

func (m *memUsers) RemoveContact(_ context.Context, id, contactID primitive.ObjectID) error {
	u, ok := m.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	kept := u.Contacts[:0]
	for _, c := range u.Contacts {
		if c != contactID {
			kept = append(kept, c)
		}
	}
	u.Contacts = kept
	return nil
}

func (m *memUsers) ListContacts(_ context.Context, id primitive.ObjectID) ([]models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	out := []models.User{}
	for _, c := range u.Contacts {
		if cu, ok := m.byID[c]; ok {
			out = append(out, *cu)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out, nil
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	if _, ok := m.byID[id]; !ok {
		return 0, nil
	}
	delete(m.byID, id)
	return 1, nil
}

func newService(t *testing.T, users accounts.Users) (*accounts.Service, *observer.ObservedLogs) {
	t.Helper()
	hasher, err := passwords.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	core, logs := observer.New(zapcore.InfoLevel)
	zlog := zap.New(core)
	audit := auditlog.New(nil, zlog, auditlog.Config{Auth: "log", Admin: "log", Source: "test"})
	f := personname.Formatter{Order: personname.LastFirst, Middle: personname.MiddleInitial}
	return accounts.New(users, hasher, audit, f, zlog), logs
}

func auditEvents(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.FilterMessage("audit event").All() {
		if v, ok := e.ContextMap()["event_type"].(string); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestRegister_DecomposesFullName(t *testing.T) {
	svc, logs := newService(t, newMemUsers())
	ctx := context.Background()

	u, err := svc.Register(ctx, accounts.Registration{
		Username: "jsmith",
		Password: "hunter2",
		Email:    "john@example.com",
		FullName: "  John Michael Smith Jr ",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	want := personname.Parts{First: "John", Middle: "Michael", Last: "Smith", Suffix: "Jr"}
	if u.NameParts() != want {
		t.Errorf("parts = %+v, want %+v", u.NameParts(), want)
	}
	if u.PasswordHash == "" || u.PasswordHash == "hunter2" {
		t.Errorf("password not hashed: %q", u.PasswordHash)
	}
	if svc.DisplayName(u) != "Smith, John M. Jr" {
		t.Errorf("DisplayName = %q", svc.DisplayName(u))
	}

	events := auditEvents(logs)
	if len(events) != 1 || events[0] != "user_created" {
		t.Errorf("audit events = %v", events)
	}
}

func TestRegister_ExplicitPartsWin(t *testing.T) {
	svc, _ := newService(t, newMemUsers())

	u, err := svc.Register(context.Background(), accounts.Registration{
		Username: "alee",
		Password: "pw",
		FullName: "Someone Else Entirely",
		Parts:    personname.Parts{First: "Ann", Last: "Lee"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.NameParts() != (personname.Parts{First: "Ann", Last: "Lee"}) {
		t.Errorf("claimed parts were overwritten: %+v", u.NameParts())
	}
}

func TestRegister_Errors(t *testing.T) {
	svc, _ := newService(t, newMemUsers())
	ctx := context.Background()

	if _, err := svc.Register(ctx, accounts.Registration{Username: "x"}); !errors.Is(err, passwords.ErrEmptyPassword) {
		t.Errorf("empty password: got %v", err)
	}

	if _, err := svc.Register(ctx, accounts.Registration{Username: "dup", Password: "pw"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, accounts.Registration{Username: "DUP", Password: "pw"}); !errors.Is(err, userstore.ErrDuplicateUsername) {
		t.Errorf("duplicate: got %v", err)
	}
}

func TestSetFullName(t *testing.T) {
	users := newMemUsers()
	svc, logs := newService(t, users)
	ctx := context.Background()

	u, err := svc.Register(ctx, accounts.Registration{Username: "cher", Password: "pw", FullName: "Cher"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unclaimed: only a first name, so the rest is filled in.
	parts, err := svc.SetFullName(ctx, u.ID, "Someone Sarkisian")
	if err != nil {
		t.Fatalf("SetFullName: %v", err)
	}
	if parts != (personname.Parts{First: "Cher", Last: "Sarkisian"}) {
		t.Errorf("parts = %+v", parts)
	}

	// Claimed now: further free text is ignored.
	parts, err = svc.SetFullName(ctx, u.ID, "Totally Different Name")
	if err != nil {
		t.Fatalf("SetFullName: %v", err)
	}
	if parts != (personname.Parts{First: "Cher", Last: "Sarkisian"}) {
		t.Errorf("claimed record changed: %+v", parts)
	}

	changes := 0
	for _, e := range auditEvents(logs) {
		if e == "name_changed" {
			changes++
		}
	}
	if changes != 1 {
		t.Errorf("expected 1 name_changed event, got %d", changes)
	}

	if _, err := svc.SetFullName(ctx, primitive.NewObjectID(), "X Y"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestSetNameParts(t *testing.T) {
	svc, _ := newService(t, newMemUsers())
	ctx := context.Background()

	u, _ := svc.Register(ctx, accounts.Registration{Username: "ann", Password: "pw", FullName: "Ann Lee"})
	p := personname.Parts{First: "Ann", Middle: "Marie", Last: "Lee", Suffix: "III"}
	got, err := svc.SetNameParts(ctx, u.ID, p)
	if err != nil {
		t.Fatalf("SetNameParts: %v", err)
	}
	if got != p {
		t.Errorf("got %+v", got)
	}
}

func TestPatchName_KeepsUnsetFields(t *testing.T) {
	svc, logs := newService(t, newMemUsers())
	ctx := context.Background()

	u, err := svc.Register(ctx, accounts.Registration{Username: "jsmith", Password: "pw", FullName: "John Michael Smith Jr"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	sr := "Sr"
	got, err := svc.PatchName(ctx, u.ID, accounts.NamePatch{Suffix: &sr})
	if err != nil {
		t.Fatalf("PatchName: %v", err)
	}
	want := personname.Parts{First: "John", Middle: "Michael", Last: "Smith", Suffix: "Sr"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	stored, err := svc.Get(ctx, "jsmith")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.NameParts() != want {
		t.Errorf("stored %+v, want %+v", stored.NameParts(), want)
	}

	// An explicit empty value clears that field only.
	empty := ""
	got, err = svc.PatchName(ctx, u.ID, accounts.NamePatch{Middle: &empty})
	if err != nil {
		t.Fatalf("PatchName: %v", err)
	}
	if got != (personname.Parts{First: "John", Last: "Smith", Suffix: "Sr"}) {
		t.Errorf("after clearing middle: %+v", got)
	}

	events := auditEvents(logs)
	if n := len(events); n == 0 || events[n-1] != "name_changed" {
		t.Errorf("expected name_changed audit event, got %v", events)
	}
}

func TestNamePatch_Apply(t *testing.T) {
	base := personname.Parts{First: "Ann", Middle: "Marie", Last: "Lee", Suffix: "III"}
	if got := (accounts.NamePatch{}).Apply(base); got != base {
		t.Errorf("empty patch changed parts: %+v", got)
	}
	last := "Leeson"
	got := accounts.NamePatch{Last: &last}.Apply(base)
	if got != (personname.Parts{First: "Ann", Middle: "Marie", Last: "Leeson", Suffix: "III"}) {
		t.Errorf("got %+v", got)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc, logs := newService(t, newMemUsers())
	ctx := context.Background()

	if _, err := svc.Register(ctx, accounts.Registration{Username: "jsmith", Password: "s3cret", FullName: "John Smith"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, ok, err := svc.VerifyPassword(ctx, "JSMITH", "s3cret")
	if err != nil || !ok || u == nil {
		t.Errorf("correct password: ok=%v err=%v", ok, err)
	}

	_, ok, err = svc.VerifyPassword(ctx, "jsmith", "wrong")
	if err != nil || ok {
		t.Errorf("wrong password: ok=%v err=%v", ok, err)
	}

	u, ok, err = svc.VerifyPassword(ctx, "ghost", "x")
	if err != nil || ok || u != nil {
		t.Errorf("unknown user: u=%v ok=%v err=%v", u, ok, err)
	}

	want := []string{"user_created", "password_verified", "password_mismatch", "password_unknown_user"}
	got := auditEvents(logs)
	if len(got) != len(want) {
		t.Fatalf("audit events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestVerifyPassword_CorruptDigest(t *testing.T) {
	users := newMemUsers()
	svc, _ := newService(t, users)
	ctx := context.Background()

	u, _ := svc.Register(ctx, accounts.Registration{Username: "broken", Password: "pw"})
	users.byID[u.ID].PasswordHash = "corrupted"

	_, ok, err := svc.VerifyPassword(ctx, "broken", "pw")
	if ok {
		t.Error("corrupt digest verified")
	}
	var verr *passwords.VerificationError
	if !errors.As(err, &verr) {
		t.Errorf("expected *VerificationError, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t, newMemUsers())
	ctx := context.Background()

	u, _ := svc.Register(ctx, accounts.Registration{Username: "jsmith", Password: "old"})

	if err := svc.ChangePassword(ctx, u.ID, "nope", "new"); !errors.Is(err, accounts.ErrWrongPassword) {
		t.Errorf("wrong current: got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "old", "new"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, ok, _ := svc.VerifyPassword(ctx, "jsmith", "new"); !ok {
		t.Error("new password does not verify")
	}
	if _, ok, _ := svc.VerifyPassword(ctx, "jsmith", "old"); ok {
		t.Error("old password still verifies")
	}
}

func TestContacts(t *testing.T) {
	svc, _ := newService(t, newMemUsers())
	ctx := context.Background()

	owner, _ := svc.Register(ctx, accounts.Registration{Username: "owner", Password: "pw", FullName: "Olive Owner"})
	_, _ = svc.Register(ctx, accounts.Registration{Username: "zed", Password: "pw", FullName: "Zed Zimmer"})
	_, _ = svc.Register(ctx, accounts.Registration{Username: "amy", Password: "pw", FullName: "Amy Adams"})

	for _, name := range []string{"zed", "amy", "amy"} {
		if _, err := svc.AddContact(ctx, owner.ID, name); err != nil {
			t.Fatalf("AddContact(%s): %v", name, err)
		}
	}
	if _, err := svc.AddContact(ctx, owner.ID, "nobody"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("unknown contact: got %v", err)
	}

	list, err := svc.Contacts(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	if len(list) != 2 || list[0].Username != "amy" {
		t.Fatalf("unexpected contacts: %d", len(list))
	}

	if err := svc.RemoveContact(ctx, owner.ID, "amy"); err != nil {
		t.Fatalf("RemoveContact: %v", err)
	}
	list, _ = svc.Contacts(ctx, owner.ID)
	if len(list) != 1 || list[0].Username != "zed" {
		t.Errorf("expected only zed after removal")
	}
}

func TestClientUser(t *testing.T) {
	svc, _ := newService(t, newMemUsers())
	u, _ := svc.Register(context.Background(), accounts.Registration{
		Username: "ann", Password: "pw", Email: "ann@example.com", FullName: "Ann Marie Leeson",
	})

	if got := svc.ClientUser(u, false).FullName; got != "Ann M. Leeson" {
		t.Errorf("FullName = %q", got)
	}
	if got := svc.ClientUser(u, true); got.MiddleName != "Marie" || got.FullName != "" {
		t.Errorf("split view = %+v", got)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t, newMemUsers())
	ctx := context.Background()

	u, _ := svc.Register(ctx, accounts.Registration{Username: "gone", Password: "pw"})
	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "gone"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("deleted user still present: %v", err)
	}
	if err := svc.Delete(ctx, u.ID); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

// TestService_MongoStore runs the main flow against the real store.
func TestService_MongoStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(t, userstore.New(db))

	u, err := svc.Register(ctx, accounts.Registration{
		Username: "grace",
		Password: "cobol",
		FullName: "Grace Brewster Hopper",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, ok, err := svc.VerifyPassword(ctx, "Grace", "cobol")
	if err != nil || !ok {
		t.Errorf("VerifyPassword: ok=%v err=%v", ok, err)
	}

	stored, err := svc.Get(ctx, "grace")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ID != u.ID || stored.FullName() != "Grace Brewster Hopper" {
		t.Errorf("unexpected stored user: %+v", stored.NameParts())
	}
}
