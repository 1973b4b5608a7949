package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkly/internal/auth"
)

// User represents an application account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ComparePassword reports whether candidate matches the stored hash. Users
// loaded through a password-excluding projection never match.
func (u *User) ComparePassword(candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return auth.VerifyPassword(u.PasswordHash, candidate)
}

// PublicUser is the subset of a user returned by login and registration.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email}
}

// Profile is the authenticated user's own view of their account.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID.Hex(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type ProfileStats struct {
	TotalBookmarks int64     `json:"totalBookmarks"`
	MemberSince    time.Time `json:"memberSince"`
}

type ProfileWithStats struct {
	Profile
	Stats ProfileStats `json:"stats"`
}
