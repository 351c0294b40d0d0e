/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Role of a panel account. The owner can do everything, admins most things, users almost nothing.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsStaff reports whether the role is allowed to act on other people's tickets
func (r Role) IsStaff() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Valid reports whether the role is one of the three known ones
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleUser
}

// MainOwnerID is the account that can never be deleted, banned or edited by anyone else.
const MainOwnerID uint64 = 1

// A panel account. The password is never stored, only its PBKDF2 hash with the salt used.
type User struct {
	ID            uint64     `gorm:"primaryKey" json:"id"`                    // Unique, monotonic id. 1 is the main owner
	Name          string     `json:"name"`                                    // Display name
	Username      string     `gorm:"uniqueIndex; not null" json:"username"`   // Login name, unique case-insensitively
	PasswordHash  string     `json:"passwordHash,omitempty"`                  // Hex PBKDF2 hash of the password
	Salt          string     `json:"salt,omitempty"`                          // Hex salt the hash was derived with
	Role          Role       `gorm:"not null; default:user" json:"role"`      // owner, admin or user
	Created       time.Time  `json:"created"`                                 // When the account was created
	Banned        bool       `json:"banned"`                                  // Banned accounts can not log in
	LastLogin     *time.Time `json:"lastLogin"`                               // Last successful login, nil if never
	LoginAttempts int        `json:"loginAttempts"`                           // Consecutive failed logins
	LockedUntil   *time.Time `json:"lockedUntil"`                             // Account is locked until this instant, nil if not locked
}

// IsLocked reports whether the account is inside a lockout window at the given instant
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// SafeUser is the view of an account that is allowed to leave the store: no hash, no salt.
type SafeUser struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Username  string     `json:"username"`
	Role      Role       `json:"role"`
	Created   time.Time  `json:"created"`
	Banned    bool       `json:"banned"`
	LastLogin *time.Time `json:"lastLogin"`
}

// Safe strips the credential fields from a user
func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Role:      u.Role,
		Created:   u.Created,
		Banned:    u.Banned,
		LastLogin: u.LastLogin,
	}
}
