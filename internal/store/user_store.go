/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/input"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/security"
	"gorm.io/gorm"
)

// UserDeps bundles what the user store needs. Notifier and Remote may be nil
// in tests
type UserDeps struct {
	DB       *gorm.DB
	Perms    perm.Checker
	Hasher   *security.Hasher
	Rate     *security.RateLimiter
	Delay    *security.SmartDelay
	Validate *input.Validator
	Audit    *audit.Logger
	Log      nlog.Logger
	Notify   Notifier
	Remote   Remote
	System   config.SystemConfig
}

// UserStore manages the panel accounts
type UserStore struct {
	db       *gorm.DB
	perms    perm.Checker
	hasher   *security.Hasher
	rate     *security.RateLimiter
	delay    *security.SmartDelay
	validate *input.Validator
	audit    *audit.Logger
	log      nlog.Logger
	notify   Notifier
	remote   Remote
	sys      config.SystemConfig
	now      func() time.Time
}

func NewUserStore(d UserDeps) *UserStore {
	return &UserStore{
		db:       d.DB,
		perms:    d.Perms,
		hasher:   d.Hasher,
		rate:     d.Rate,
		delay:    d.Delay,
		validate: d.Validate,
		audit:    d.Audit,
		log:      d.Log,
		notify:   orNopNotifier(d.Notify),
		remote:   orNopRemote(d.Remote),
		sys:      d.System,
		now:      time.Now,
	}
}

func (s *UserStore) byUsername(username string) (*entity.User, error) {
	var u entity.User
	err := s.db.Where("LOWER(username) = LOWER(?)", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (s *UserStore) byID(id uint64) (*entity.User, error) {
	var u entity.User
	err := s.db.First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

// Register creates an account. An anonymous actor always gets the user role,
// staff may assign roles when they hold change_role
func (s *UserStore) Register(actor Actor, name, username, password string, role entity.Role) entity.Result[entity.SafeUser] {
	if ok, msg := s.validate.CheckText("name", name, actor.Username); !ok {
		return entity.Fail[entity.SafeUser](msg)
	}
	if ok, msg := s.validate.CheckText("username", username, actor.Username); !ok {
		return entity.Fail[entity.SafeUser](msg)
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(username) == "" {
		return entity.Fail[entity.SafeUser]("Name and username are required")
	}
	if len(password) < s.sys.MinPasswordLength {
		return entity.Fail[entity.SafeUser](fmt.Sprintf("Password must be at least %d characters", s.sys.MinPasswordLength))
	}

	if actor.Anonymous() {
		role = entity.RoleUser
	} else {
		if !s.perms.Can(actor.Role, perm.CreateUser) {
			return entity.Fail[entity.SafeUser]("You are not allowed to create users")
		}
		if !role.Valid() {
			role = entity.RoleUser
		}
		if role != entity.RoleUser && !s.perms.Can(actor.Role, perm.ChangeRole) {
			role = entity.RoleUser
		}
	}

	existing, err := s.byUsername(username)
	if err != nil {
		return entity.Fail[entity.SafeUser]("Could not check username availability")
	}
	if existing != nil {
		return entity.Fail[entity.SafeUser]("Username already taken")
	}

	cred, err := s.hasher.Hash(password)
	if err != nil {
		return entity.Fail[entity.SafeUser]("Could not secure the password")
	}
	u := entity.User{
		Name:         strings.TrimSpace(name),
		Username:     strings.TrimSpace(username),
		PasswordHash: cred.Hash,
		Salt:         cred.Salt,
		Role:         role,
		Created:      s.now(),
	}
	if err := s.db.Create(&u).Error; err != nil {
		s.log.Logf("Could not create user %s: %v", username, err)
		return entity.Fail[entity.SafeUser]("Could not create the account")
	}

	s.audit.Infof("USER_CREATED", actor.Username, map[string]any{"username": u.Username, "role": string(u.Role)})
	s.notify.NotifyChange(entity.TypeUsers, u)
	return entity.Ok(u.Safe())
}

// Login authenticates the given credentials. Failures pay an escalating delay
// and count towards the rate limit and the per-account lockout
func (s *UserStore) Login(ctx context.Context, username, password string) entity.Result[entity.SafeUser] {
	allowed, msg, err := s.rate.Check(username)
	if err != nil {
		s.log.Logf("Rate limiter failed for %s: %v", username, err)
		return entity.Fail[entity.SafeUser]("Login unavailable, try again")
	}
	if !allowed {
		s.audit.Warningf("LOGIN_RATE_LIMITED", username, nil)
		return entity.Fail[entity.SafeUser](msg)
	}

	var res entity.Result[entity.SafeUser]
	_, err = s.delay.ExecuteWithDelay(ctx, username, func() (bool, error) {
		res = s.tryLogin(username, password)
		return res.Success, nil
	})
	if err != nil {
		s.log.Logf("Login delay machinery failed for %s: %v", username, err)
		// The delay layer gave up before the attempt ran, res was never
		// filled in. Hand back a real answer instead of a zero value.
		if res.Message == "" {
			return entity.Fail[entity.SafeUser]("Login unavailable, try again")
		}
	}
	return res
}

func (s *UserStore) tryLogin(username, password string) entity.Result[entity.SafeUser] {
	u, err := s.byUsername(username)
	if err != nil {
		return entity.Fail[entity.SafeUser]("Login unavailable, try again")
	}
	if u == nil {
		s.audit.Warningf("LOGIN_FAILED", username, map[string]any{"reason": "unknown user"})
		return entity.Fail[entity.SafeUser]("Invalid credentials")
	}
	if u.Banned {
		s.audit.Warningf("LOGIN_BANNED", username, nil)
		return entity.Fail[entity.SafeUser]("This account is banned")
	}
	now := s.now()
	if u.IsLocked(now) {
		mins := int(u.LockedUntil.Sub(now).Minutes()) + 1
		s.audit.Warningf("LOGIN_LOCKED", username, nil)
		return entity.Fail[entity.SafeUser](fmt.Sprintf("Account locked. Try again in %d minutes", mins))
	}

	if !s.hasher.Verify(password, security.Credential{Hash: u.PasswordHash, Salt: u.Salt}) {
		u.LoginAttempts++
		if u.LoginAttempts >= s.sys.MaxLoginAttempts {
			until := now.Add(time.Duration(s.sys.LockoutDuration))
			u.LockedUntil = &until
			u.LoginAttempts = 0
			s.audit.Criticalf("ACCOUNT_LOCKED", username, map[string]any{"until": until})
		} else {
			s.audit.Warningf("LOGIN_FAILED", username, map[string]any{"attempt": u.LoginAttempts})
		}
		if err := s.db.Save(u).Error; err != nil {
			s.log.Logf("Could not persist failed-login state for %s: %v", username, err)
		}
		return entity.Fail[entity.SafeUser]("Invalid credentials")
	}

	u.LoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &now
	if err := s.db.Save(u).Error; err != nil {
		s.log.Logf("Could not persist login state for %s: %v", username, err)
	}
	if err := s.rate.Reset(username); err != nil {
		s.log.Logf("Could not reset rate limiter for %s: %v", username, err)
	}
	s.audit.Infof("LOGIN", u.Username, nil)
	return entity.Ok(u.Safe())
}

// Logout only audits, the session itself dies at the handler
func (s *UserStore) Logout(actor Actor) {
	s.audit.Infof("LOGOUT", actor.Username, nil)
}

// ChangePassword sets a new password. Changing your own requires the old one,
// changing someone else's requires edit_user and respects the hierarchy
func (s *UserStore) ChangePassword(actor Actor, targetID uint64, oldPassword, newPassword string) entity.Result[struct{}] {
	target, err := s.byID(targetID)
	if err != nil || target == nil {
		return entity.Fail[struct{}]("User not found")
	}
	if len(newPassword) < s.sys.MinPasswordLength {
		return entity.Fail[struct{}](fmt.Sprintf("Password must be at least %d characters", s.sys.MinPasswordLength))
	}

	self := actor.ID == targetID
	if self {
		if !s.hasher.Verify(oldPassword, security.Credential{Hash: target.PasswordHash, Salt: target.Salt}) {
			s.audit.Warningf("PASSWORD_CHANGE_FAILED", actor.Username, map[string]any{"reason": "wrong old password"})
			return entity.Fail[struct{}]("Current password is wrong")
		}
	} else {
		if !s.perms.Can(actor.Role, perm.EditUser) {
			return entity.Fail[struct{}]("You are not allowed to edit users")
		}
		if deny := s.hierarchyDeny(actor, target); deny != "" {
			return entity.Fail[struct{}](deny)
		}
	}

	cred, err := s.hasher.Hash(newPassword)
	if err != nil {
		return entity.Fail[struct{}]("Could not secure the password")
	}
	target.PasswordHash = cred.Hash
	target.Salt = cred.Salt
	if err := s.db.Save(target).Error; err != nil {
		return entity.Fail[struct{}]("Could not save the new password")
	}

	s.audit.Infof("PASSWORD_CHANGED", actor.Username, map[string]any{"target": target.Username})
	s.notify.NotifyChange(entity.TypeUsers, *target)
	return entity.Ok(struct{}{})
}

// hierarchyDeny enforces that nobody below the owner touches the main owner,
// owners are only touched by owners, and admins never act on other admins
func (s *UserStore) hierarchyDeny(actor Actor, target *entity.User) string {
	if target.ID == entity.MainOwnerID && actor.ID != entity.MainOwnerID {
		return "The main owner account is protected"
	}
	if target.Role == entity.RoleOwner && actor.Role != entity.RoleOwner {
		return "Only an owner can act on an owner"
	}
	if target.Role == entity.RoleAdmin && actor.Role == entity.RoleAdmin && actor.ID != target.ID {
		return "Admins can not act on other admins"
	}
	return ""
}

// Update edits name, username and optionally role
func (s *UserStore) Update(actor Actor, targetID uint64, name, username string, role entity.Role) entity.Result[entity.SafeUser] {
	target, err := s.byID(targetID)
	if err != nil || target == nil {
		return entity.Fail[entity.SafeUser]("User not found")
	}
	self := actor.ID == targetID
	if !self && !s.perms.Can(actor.Role, perm.EditUser) {
		return entity.Fail[entity.SafeUser]("You are not allowed to edit users")
	}
	if !self {
		if deny := s.hierarchyDeny(actor, target); deny != "" {
			return entity.Fail[entity.SafeUser](deny)
		}
	}
	if ok, msg := s.validate.CheckText("name", name, actor.Username); !ok {
		return entity.Fail[entity.SafeUser](msg)
	}
	if ok, msg := s.validate.CheckText("username", username, actor.Username); !ok {
		return entity.Fail[entity.SafeUser](msg)
	}

	if !strings.EqualFold(username, target.Username) {
		existing, err := s.byUsername(username)
		if err != nil {
			return entity.Fail[entity.SafeUser]("Could not check username availability")
		}
		if existing != nil && existing.ID != targetID {
			return entity.Fail[entity.SafeUser]("Username already taken")
		}
	}

	if role != "" && role != target.Role {
		if !s.perms.Can(actor.Role, perm.ChangeRole) {
			return entity.Fail[entity.SafeUser]("You are not allowed to change roles")
		}
		if target.ID == entity.MainOwnerID {
			return entity.Fail[entity.SafeUser]("The main owner's role can not change")
		}
		if !role.Valid() {
			return entity.Fail[entity.SafeUser]("Unknown role")
		}
		target.Role = role
	}

	target.Name = strings.TrimSpace(name)
	target.Username = strings.TrimSpace(username)
	if err := s.db.Save(target).Error; err != nil {
		return entity.Fail[entity.SafeUser]("Could not save the changes")
	}

	s.audit.Infof("USER_UPDATED", actor.Username, map[string]any{"target": target.Username})
	s.notify.NotifyChange(entity.TypeUsers, *target)
	return entity.Ok(target.Safe())
}

// Delete removes an account for good. The remote copy goes first: an online
// failure aborts, offline falls through and the engine queues the delete
func (s *UserStore) Delete(actor Actor, targetID uint64) entity.Result[struct{}] {
	if targetID == entity.MainOwnerID {
		return entity.Fail[struct{}]("The main owner account can not be deleted")
	}
	if !s.perms.Can(actor.Role, perm.DeleteUser) {
		return entity.Fail[struct{}]("You are not allowed to delete users")
	}
	target, err := s.byID(targetID)
	if err != nil || target == nil {
		return entity.Fail[struct{}]("User not found")
	}
	if deny := s.hierarchyDeny(actor, target); deny != "" {
		return entity.Fail[struct{}](deny)
	}

	offline := false
	if err := s.remote.DeleteRemote(entity.TypeUsers, targetID); err != nil {
		if !errors.Is(err, ErrOffline) {
			s.audit.Errorf("USER_DELETE_FAILED", actor.Username, map[string]any{"target": target.Username, "error": err.Error()})
			return entity.Fail[struct{}]("Could not delete the remote copy")
		}
		offline = true
	}
	if err := s.db.Delete(&entity.User{}, targetID).Error; err != nil {
		return entity.Fail[struct{}]("Could not delete the account")
	}

	s.audit.Infof("USER_DELETED", actor.Username, map[string]any{"target": target.Username})
	s.notify.NotifyDeleted(entity.TypeUsers)
	if offline {
		return entity.Result[struct{}]{Success: true, Offline: true, Message: "Deleted locally, remote delete queued"}
	}
	return entity.Ok(struct{}{})
}

// Ban locks an account out without deleting it
func (s *UserStore) Ban(actor Actor, targetID uint64) entity.Result[entity.SafeUser] {
	return s.setBanned(actor, targetID, true, perm.BanUser, "USER_BANNED")
}

// Unban lifts a ban
func (s *UserStore) Unban(actor Actor, targetID uint64) entity.Result[entity.SafeUser] {
	return s.setBanned(actor, targetID, false, perm.UnbanUser, "USER_UNBANNED")
}

func (s *UserStore) setBanned(actor Actor, targetID uint64, banned bool, permID, action string) entity.Result[entity.SafeUser] {
	if targetID == entity.MainOwnerID {
		return entity.Fail[entity.SafeUser]("The main owner account can not be banned")
	}
	if !s.perms.Can(actor.Role, permID) {
		return entity.Fail[entity.SafeUser]("You are not allowed to do that")
	}
	target, err := s.byID(targetID)
	if err != nil || target == nil {
		return entity.Fail[entity.SafeUser]("User not found")
	}
	if deny := s.hierarchyDeny(actor, target); deny != "" {
		return entity.Fail[entity.SafeUser](deny)
	}

	target.Banned = banned
	if err := s.db.Save(target).Error; err != nil {
		return entity.Fail[entity.SafeUser]("Could not save the change")
	}
	s.audit.Infof(action, actor.Username, map[string]any{"target": target.Username})
	s.notify.NotifyChange(entity.TypeUsers, *target)
	return entity.Ok(target.Safe())
}

// List returns every account without credential fields
func (s *UserStore) List(actor Actor) entity.Result[[]entity.SafeUser] {
	if !s.perms.Can(actor.Role, perm.ViewAllUsers) {
		return entity.Fail[[]entity.SafeUser]("You are not allowed to view users")
	}
	var users []entity.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return entity.Fail[[]entity.SafeUser]("Could not load users")
	}
	out := make([]entity.SafeUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Safe())
	}
	return entity.Ok(out)
}

// Get returns one account without credential fields. Everyone may look
// themselves up, view_all_users covers the rest
func (s *UserStore) Get(actor Actor, id uint64) entity.Result[entity.SafeUser] {
	if actor.ID != id && !s.perms.Can(actor.Role, perm.ViewAllUsers) {
		return entity.Fail[entity.SafeUser]("You are not allowed to view users")
	}
	u, err := s.byID(id)
	if err != nil || u == nil {
		return entity.Fail[entity.SafeUser]("User not found")
	}
	return entity.Ok(u.Safe())
}

// MergeRemote replaces the whole collection with the incoming documents.
// An incoming record without credentials keeps the local hash and salt, so a
// sanitized snapshot never wipes anyone's password
func (s *UserStore) MergeRemote(incoming []entity.User) error {
	var local []entity.User
	if err := s.db.Find(&local).Error; err != nil {
		return err
	}
	creds := make(map[uint64]entity.User, len(local))
	for _, u := range local {
		creds[u.ID] = u
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.User{}).Error; err != nil {
			return err
		}
		for i := range incoming {
			u := incoming[i]
			if prev, ok := creds[u.ID]; ok && u.PasswordHash == "" {
				u.PasswordHash = prev.PasswordHash
				u.Salt = prev.Salt
			}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertItem merges one incoming document, with the same credential
// preservation as MergeRemote
func (s *UserStore) UpsertItem(doc entity.User) error {
	if doc.ID == 0 {
		return nil
	}
	prev, err := s.byID(doc.ID)
	if err != nil {
		return err
	}
	if prev != nil && doc.PasswordHash == "" {
		doc.PasswordHash = prev.PasswordHash
		doc.Salt = prev.Salt
	}
	return s.db.Save(&doc).Error
}
