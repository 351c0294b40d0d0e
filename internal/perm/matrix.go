/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package perm

import "github.com/tech7infopro-dev/AHMEDTECH/internal/entity"

// Stable permission identifiers checked by the stores and handlers
const (
	ViewAllUsers     = "view_all_users"
	CreateUser       = "create_user"
	EditUser         = "edit_user"
	DeleteUser       = "delete_user"
	BanUser          = "ban_user"
	UnbanUser        = "unban_user"
	ChangeRole       = "change_role"
	ViewLogs         = "view_logs"
	SystemSettings   = "system_settings"
	CopyContent      = "copy_content"
	ExportData       = "export_data"
	FullAccess       = "full_access"
	ManageFreeMAC    = "manage_free_mac"
	ManageFreeXtream = "manage_free_xtream"
	ManageTelegram   = "manage_telegram"
	ManageIPTVApps   = "manage_iptv_apps"
	RemoteSync       = "remote_sync"
	ViewFreeMAC      = "view_free_mac"
	ViewFreeXtream   = "view_free_xtream"
	ViewTelegram     = "view_telegram"
	ViewIPTVApps     = "view_iptv_apps"
)

// Permission is one named capability and whether the role holds it
type Permission struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
}

// Matrix maps each role to its ordered permission list
type Matrix map[entity.Role][]Permission

// Checker answers permission questions for a role
type Checker interface {
	Can(role entity.Role, permissionID string) bool
}

// checker is the Matrix backed Checker
type checker struct {
	byRole map[entity.Role]map[string]bool
}

// NewChecker indexes the matrix for lookup. The owner role holds every
// permission regardless of what the matrix says
func NewChecker(m Matrix) Checker {
	idx := make(map[entity.Role]map[string]bool, len(m))
	for role, perms := range m {
		set := make(map[string]bool, len(perms))
		for _, p := range perms {
			set[p.ID] = p.Allowed
		}
		idx[role] = set
	}
	return &checker{byRole: idx}
}

func (c *checker) Can(role entity.Role, permissionID string) bool {
	if role == entity.RoleOwner {
		return true
	}
	return c.byRole[role][permissionID]
}

// DefaultMatrix is the shipped permission assignment
func DefaultMatrix() Matrix {
	admin := map[string]bool{
		ViewAllUsers: true, CreateUser: true, EditUser: true, BanUser: true,
		UnbanUser: true, ViewLogs: true, CopyContent: true, ExportData: true,
		ManageFreeMAC: true, ManageFreeXtream: true, ManageTelegram: true,
		ManageIPTVApps: true, RemoteSync: true,
		ViewFreeMAC: true, ViewFreeXtream: true, ViewTelegram: true, ViewIPTVApps: true,
	}
	user := map[string]bool{
		CopyContent: true,
		ViewFreeMAC: true, ViewFreeXtream: true, ViewTelegram: true, ViewIPTVApps: true,
	}

	names := []struct{ id, name string }{
		{ViewAllUsers, "View all users"},
		{CreateUser, "Create users"},
		{EditUser, "Edit users"},
		{DeleteUser, "Delete users"},
		{BanUser, "Ban users"},
		{UnbanUser, "Unban users"},
		{ChangeRole, "Change user roles"},
		{ViewLogs, "View audit logs"},
		{SystemSettings, "Change system settings"},
		{CopyContent, "Copy content"},
		{ExportData, "Export data"},
		{FullAccess, "Full access"},
		{ManageFreeMAC, "Manage free MAC addresses"},
		{ManageFreeXtream, "Manage free Xtream accounts"},
		{ManageTelegram, "Manage telegram links"},
		{ManageIPTVApps, "Manage IPTV apps"},
		{RemoteSync, "Use remote sync"},
		{ViewFreeMAC, "View free MAC addresses"},
		{ViewFreeXtream, "View free Xtream accounts"},
		{ViewTelegram, "View telegram links"},
		{ViewIPTVApps, "View IPTV apps"},
	}

	build := func(allowed map[string]bool, all bool) []Permission {
		out := make([]Permission, 0, len(names))
		for _, n := range names {
			out = append(out, Permission{ID: n.id, Name: n.name, Allowed: all || allowed[n.id]})
		}
		return out
	}

	return Matrix{
		entity.RoleOwner: build(nil, true),
		entity.RoleAdmin: build(admin, false),
		entity.RoleUser:  build(user, false),
	}
}
