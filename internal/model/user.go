package model

import "time"

// Role is the access level carried by a user account and its session.
type Role string

const (
    RoleClient Role = "CLIENT"
    RoleAgent  Role = "AGENT"
    RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RoleClient, RoleAgent, RoleAdmin:
        return true
    }
    return false
}

// User represents an application user record as stored in the
// `users` table. Handlers never serialize this struct directly
// because it carries the password hash; see PublicUser.
//
// Fields:
//  ID             – opaque primary key (UUID string).
//  Name           – display name, optional.
//  Email          – unique email address, matched exactly.
//  HashedPassword – bcrypt hash; empty when the account has no password yet.
//  Role           – CLIENT, AGENT or ADMIN.
//  EmailVerified  – when ownership of Email was proven (nil if unverified).
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
    ID             string     // users.id
    Name           *string    // users.name (nullable)
    Email          string     // users.email
    HashedPassword string     // users.hashed_password
    Role           Role       // users.role
    EmailVerified  *time.Time // users.email_verified (nullable)
    CreatedAt      time.Time  // users.created_at
    UpdatedAt      time.Time  // users.updated_at
}

// PublicUser is the JSON shape of a user returned by the API.
type PublicUser struct {
    ID            string     `json:"id"`
    Name          *string    `json:"name"`
    Email         string     `json:"email"`
    Role          Role       `json:"role"`
    EmailVerified *time.Time `json:"emailVerified"`
    CreatedAt     time.Time  `json:"createdAt"`
    UpdatedAt     time.Time  `json:"updatedAt"`
}

// Public strips the credential fields from u.
func (u *User) Public() PublicUser {
    return PublicUser{
        ID:            u.ID,
        Name:          u.Name,
        Email:         u.Email,
        Role:          u.Role,
        EmailVerified: u.EmailVerified,
        CreatedAt:     u.CreatedAt,
        UpdatedAt:     u.UpdatedAt,
    }
}

// Identity is the authenticated principal derived from a valid session.
type Identity struct {
    ID            string `json:"id"`
    Name          string `json:"name,omitempty"`
    Email         string `json:"email"`
    Role          Role   `json:"role"`
    EmailVerified bool   `json:"emailVerified"`
}

// IdentityOf builds the session identity for u.
func IdentityOf(u *User) Identity {
    id := Identity{
        ID:            u.ID,
        Email:         u.Email,
        Role:          u.Role,
        EmailVerified: u.EmailVerified != nil,
    }
    if u.Name != nil {
        id.Name = *u.Name
    }
    return id
}
