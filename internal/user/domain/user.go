package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the credential record and profile of an API user.
type User struct {
	ID           int64
	Login        string
	Name         string
	Email        string
	PasswordHash string // never serialized outward
	Privilege    Privilege
	TokenID      *string // current session identifier; nil until the first login
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Privilege is the access level of a user.
type Privilege string

const (
	PrivilegeUser  Privilege = "USER"
	PrivilegeAdmin Privilege = "ADMIN"
)

// Valid reports whether p is a known privilege.
func (p Privilege) Valid() bool {
	return p == PrivilegeUser || p == PrivilegeAdmin
}

// Login length bounds shared by the users API and token payload validation.
const (
	MinLoginLen = 3
	MaxLoginLen = 255
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	u.Login = strings.TrimSpace(u.Login)
	if len(u.Login) < MinLoginLen || len(u.Login) > MaxLoginLen {
		return errors.New("login must be between 3 and 255 characters")
	}
	if u.Privilege == "" {
		u.Privilege = PrivilegeUser
	}
	if !u.Privilege.Valid() {
		return errors.New("privilege must be USER or ADMIN")
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return errors.New("email is invalid")
	}
	return nil
}

// Identity is the public projection of a user carried inside tokens and request context.
type Identity struct {
	ID        int64     `json:"id"`
	Login     string    `json:"login"`
	Privilege Privilege `json:"privilege"`
}

// Identity returns the public identity of u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Login: u.Login, Privilege: u.Privilege}
}
