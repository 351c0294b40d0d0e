/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package store

import (
	"errors"
	"strings"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/input"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"gorm.io/gorm"
)

// XtreamView is a pool entry decorated with its expiry status for the UI
type XtreamView struct {
	entity.FreeXtream
	Expired  bool `json:"expired"`
	DaysLeft int  `json:"daysLeft"`
}

// XtreamStore manages the free Xtream account pool. Same shape as the MAC
// pool, unique on the (url, username) pair instead of the address
type XtreamStore struct {
	Deps
	now func() time.Time
}

func NewXtreamStore(d Deps) *XtreamStore {
	d.Notify = orNopNotifier(d.Notify)
	d.Remote = orNopRemote(d.Remote)
	return &XtreamStore{Deps: d, now: time.Now}
}

func (s *XtreamStore) validateFields(actor Actor, url, username string) string {
	if !input.ValidURL(url) {
		return "Server URL must be a valid http(s) URL"
	}
	if strings.TrimSpace(username) == "" {
		return "Username is required"
	}
	if ok, msg := s.Validate.CheckText("username", username, actor.Username); !ok {
		return msg
	}
	return ""
}

func (s *XtreamStore) duplicate(url, username string, excludeID uint64) (bool, error) {
	var count int64
	q := s.DB.Model(&entity.FreeXtream{}).Where("url = ? AND username = ?", url, username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Add inserts a new pool entry
func (s *XtreamStore) Add(actor Actor, url, username, password string, expiry time.Time) entity.Result[entity.FreeXtream] {
	if !s.Perms.Can(actor.Role, perm.ManageFreeXtream) {
		return entity.Fail[entity.FreeXtream]("You are not allowed to manage free Xtream accounts")
	}
	if msg := s.validateFields(actor, url, username); msg != "" {
		return entity.Fail[entity.FreeXtream](msg)
	}
	dup, err := s.duplicate(url, username, 0)
	if err != nil {
		return entity.Fail[entity.FreeXtream]("Could not check for duplicates")
	}
	if dup {
		return entity.Fail[entity.FreeXtream]("This account is already in the pool")
	}

	x := entity.FreeXtream{
		URL:        url,
		Username:   strings.TrimSpace(username),
		Password:   password,
		ExpiryDate: expiry,
		Created:    s.now(),
		CreatedBy:  actor.Username,
	}
	if err := s.DB.Create(&x).Error; err != nil {
		s.Log.Logf("Could not create free Xtream %s@%s: %v", username, url, err)
		return entity.Fail[entity.FreeXtream]("Could not add the entry")
	}

	s.Audit.Infof("FREE_XTREAM_ADDED", actor.Username, map[string]any{"account": username})
	s.Notify.NotifyChange(entity.TypeXtreams, x)
	return entity.Ok(x)
}

// Edit updates an existing entry
func (s *XtreamStore) Edit(actor Actor, id uint64, url, username, password string, expiry time.Time) entity.Result[entity.FreeXtream] {
	if !s.Perms.Can(actor.Role, perm.ManageFreeXtream) {
		return entity.Fail[entity.FreeXtream]("You are not allowed to manage free Xtream accounts")
	}
	var x entity.FreeXtream
	if err := s.DB.First(&x, id).Error; err != nil {
		return entity.Fail[entity.FreeXtream]("Entry not found")
	}
	if msg := s.validateFields(actor, url, username); msg != "" {
		return entity.Fail[entity.FreeXtream](msg)
	}
	dup, err := s.duplicate(url, username, id)
	if err != nil {
		return entity.Fail[entity.FreeXtream]("Could not check for duplicates")
	}
	if dup {
		return entity.Fail[entity.FreeXtream]("This account is already in the pool")
	}

	x.URL = url
	x.Username = strings.TrimSpace(username)
	x.Password = password
	x.ExpiryDate = expiry
	if err := s.DB.Save(&x).Error; err != nil {
		return entity.Fail[entity.FreeXtream]("Could not save the entry")
	}

	s.Audit.Infof("FREE_XTREAM_UPDATED", actor.Username, map[string]any{"account": username})
	s.Notify.NotifyChange(entity.TypeXtreams, x)
	return entity.Ok(x)
}

// Delete removes an entry, remote copy first
func (s *XtreamStore) Delete(actor Actor, id uint64) entity.Result[struct{}] {
	if !s.Perms.Can(actor.Role, perm.ManageFreeXtream) {
		return entity.Fail[struct{}]("You are not allowed to manage free Xtream accounts")
	}
	var x entity.FreeXtream
	if err := s.DB.First(&x, id).Error; err != nil {
		return entity.Fail[struct{}]("Entry not found")
	}

	offline := false
	if err := s.Remote.DeleteRemote(entity.TypeXtreams, id); err != nil {
		if !errors.Is(err, ErrOffline) {
			s.Audit.Errorf("FREE_XTREAM_DELETE_FAILED", actor.Username, map[string]any{"account": x.Username, "error": err.Error()})
			return entity.Fail[struct{}]("Could not delete the remote copy")
		}
		offline = true
	}
	if err := s.DB.Delete(&entity.FreeXtream{}, id).Error; err != nil {
		return entity.Fail[struct{}]("Could not delete the entry")
	}

	s.Audit.Infof("FREE_XTREAM_DELETED", actor.Username, map[string]any{"account": x.Username})
	s.Notify.NotifyDeleted(entity.TypeXtreams)
	if offline {
		return entity.Result[struct{}]{Success: true, Offline: true, Message: "Deleted locally, remote delete queued"}
	}
	return entity.Ok(struct{}{})
}

// List returns the pool sorted by expiry, soonest first
func (s *XtreamStore) List(actor Actor) entity.Result[[]XtreamView] {
	if !s.Perms.Can(actor.Role, perm.ViewFreeXtream) {
		return entity.Fail[[]XtreamView]("You are not allowed to view free Xtream accounts")
	}
	var xs []entity.FreeXtream
	if err := s.DB.Order("expiry_date").Find(&xs).Error; err != nil {
		return entity.Fail[[]XtreamView]("Could not load the pool")
	}
	now := s.now()
	out := make([]XtreamView, 0, len(xs))
	for i := range xs {
		v := XtreamView{FreeXtream: xs[i], Expired: xs[i].Expired(now)}
		if !v.Expired {
			v.DaysLeft = int(xs[i].ExpiryDate.Sub(now).Hours() / 24)
		}
		out = append(out, v)
	}
	return entity.Ok(out)
}

// SweepExpired destructively removes every entry past its expiry
func (s *XtreamStore) SweepExpired() (int, error) {
	res := s.DB.Where("expiry_date < ?", s.now()).Delete(&entity.FreeXtream{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.Audit.Infof("FREE_XTREAM_SWEEP", "", map[string]any{"removed": res.RowsAffected})
		s.Notify.NotifyDeleted(entity.TypeXtreams)
	}
	return int(res.RowsAffected), nil
}

// MergeRemote replaces the whole pool with the incoming documents
func (s *XtreamStore) MergeRemote(incoming []entity.FreeXtream) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.FreeXtream{}).Error; err != nil {
			return err
		}
		for i := range incoming {
			if err := tx.Create(&incoming[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertItem merges one incoming document by id
func (s *XtreamStore) UpsertItem(doc entity.FreeXtream) error {
	if doc.ID == 0 {
		return nil
	}
	return s.DB.Save(&doc).Error
}
