package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// ParseRoleFilter maps a query value to a role filter. "all" and the empty
// string mean no filter; ok is false for unknown roles.
func ParseRoleFilter(raw string) (role *UserRole, ok bool) {
	switch UserRole(strings.ToLower(strings.TrimSpace(raw))) {
	case "", "all":
		return nil, true
	case RoleUser:
		r := RoleUser
		return &r, true
	case RoleAdmin:
		r := RoleAdmin
		return &r, true
	default:
		return nil, false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	PasswordSalt string    `db:"password_salt" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role *UserRole
}

// UserShareStats is a user row joined with aggregate share counters.
type UserShareStats struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Role       UserRole  `db:"role" json:"role"`
	ShareCount int       `db:"share_count" json:"shareCount"`
	TotalViews int64     `db:"total_views" json:"totalViews"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
