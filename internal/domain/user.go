package domain

import (
	"errors"
	"time"
)

// User represents a library account.
type User struct {
	ID             string
	Username       string
	HashedPassword string
	Role           Role
	CreatedAt      time.Time
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin manages the catalog and accounts and may act on any loan
	RoleAdmin Role = "admin"

	// RoleMember can borrow and return books for itself
	RoleMember Role = "member"
)

var validRoles = map[Role]bool{
	RoleAdmin:  true,
	RoleMember: true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanManageCatalog checks if the role can add, edit or delete books
func (r Role) CanManageCatalog() bool {
	return r == RoleAdmin
}

// CanManageAccounts checks if the role can list and delete users
func (r Role) CanManageAccounts() bool {
	return r == RoleAdmin
}

// Principal is the already-authenticated identity of a caller.
type Principal struct {
	UserID string
	Role   Role
}

// SystemPrincipal is used when requests come from a trusted caller that does
// not carry its own identity.
var SystemPrincipal = Principal{UserID: "system", Role: RoleAdmin}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanActFor reports whether the principal may act on loans owned by userID.
func (p Principal) CanActFor(userID string) bool {
	return p.IsAdmin() || (p.UserID != "" && p.UserID == userID)
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
