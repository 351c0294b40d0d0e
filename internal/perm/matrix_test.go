/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package perm

import (
	"testing"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
)

func TestOwnerHoldsEverything(t *testing.T) {
	c := NewChecker(DefaultMatrix())
	for _, id := range []string{DeleteUser, ChangeRole, SystemSettings, FullAccess} {
		if !c.Can(entity.RoleOwner, id) {
			t.Errorf("owner denied %s", id)
		}
	}
}

func TestOwnerBypassesMatrix(t *testing.T) {
	// Even an empty matrix cannot take anything from the owner
	c := NewChecker(Matrix{})
	if !c.Can(entity.RoleOwner, DeleteUser) {
		t.Error("owner denied with empty matrix")
	}
}

func TestAdminLimits(t *testing.T) {
	c := NewChecker(DefaultMatrix())
	allowed := []string{ViewAllUsers, CreateUser, BanUser, ManageFreeMAC, RemoteSync}
	for _, id := range allowed {
		if !c.Can(entity.RoleAdmin, id) {
			t.Errorf("admin denied %s", id)
		}
	}
	denied := []string{DeleteUser, ChangeRole, SystemSettings, FullAccess}
	for _, id := range denied {
		if c.Can(entity.RoleAdmin, id) {
			t.Errorf("admin granted %s", id)
		}
	}
}

func TestUserLimits(t *testing.T) {
	c := NewChecker(DefaultMatrix())
	for _, id := range []string{ViewFreeMAC, ViewFreeXtream, ViewTelegram, ViewIPTVApps, CopyContent} {
		if !c.Can(entity.RoleUser, id) {
			t.Errorf("user denied %s", id)
		}
	}
	for _, id := range []string{ViewAllUsers, ManageFreeMAC, ViewLogs, RemoteSync} {
		if c.Can(entity.RoleUser, id) {
			t.Errorf("user granted %s", id)
		}
	}
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	c := NewChecker(DefaultMatrix())
	if c.Can(entity.Role("ghost"), ViewFreeMAC) {
		t.Error("unknown role granted a permission")
	}
}
