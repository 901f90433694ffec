// internal/domain/models/user.go
package models

import (
	"time"

	"github.com/dalemusser/userz/internal/app/system/personname"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account record in the users collection.
//
// NOTE:
//   - PasswordHash is a bcrypt digest; it never leaves the server. Use
//     ClientView for anything shown to a client.
//   - FullNameCI is derived from the name fields on every write.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	UsernameCI   string             `bson:"username_ci" json:"username_ci"` // lowercase, diacritics-stripped
	PasswordHash string             `bson:"password_hash" json:"-"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`

	FirstName  string `bson:"first_name" json:"first_name"`
	MiddleName string `bson:"middle_name,omitempty" json:"middle_name,omitempty"`
	LastName   string `bson:"last_name" json:"last_name"`
	NameSuffix string `bson:"name_suffix,omitempty" json:"name_suffix,omitempty"`
	FullNameCI string `bson:"full_name_ci" json:"full_name_ci"`

	Contacts []primitive.ObjectID `bson:"contacts,omitempty" json:"contacts,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NameParts returns the structured name fields.
func (u User) NameParts() personname.Parts {
	return personname.Parts{
		First:  u.FirstName,
		Middle: u.MiddleName,
		Last:   u.LastName,
		Suffix: u.NameSuffix,
	}
}

// SetNameParts copies p into the name fields.
func (u *User) SetNameParts(p personname.Parts) {
	u.FirstName = p.First
	u.MiddleName = p.Middle
	u.LastName = p.Last
	u.NameSuffix = p.Suffix
}

// FullName is the default display name (first name first, full middle name).
func (u User) FullName() string {
	return personname.DisplayName(u.NameParts())
}

// HasContact reports whether id is in the contact list.
func (u User) HasContact(id primitive.ObjectID) bool {
	for _, c := range u.Contacts {
		if c == id {
			return true
		}
	}
	return false
}

// ClientUser is the non-secret view of a user. Either the split name fields
// or FullName is populated, never both.
type ClientUser struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`

	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	NameSuffix string `json:"name_suffix,omitempty"`

	FullName string `json:"full_name,omitempty"`
}

// ClientView builds the client-facing view. With splitName the four name
// fields are copied; otherwise FullName is rendered first name first with
// a middle initial.
func (u User) ClientView(splitName bool) ClientUser {
	cu := ClientUser{
		Username: u.Username,
		Email:    u.Email,
	}
	if splitName {
		cu.FirstName = u.FirstName
		cu.MiddleName = u.MiddleName
		cu.LastName = u.LastName
		cu.NameSuffix = u.NameSuffix
	} else {
		cu.FullName = personname.Compose(u.NameParts(), personname.FirstFirst, personname.MiddleInitial)
	}
	return cu
}
