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

// AppStore manages the app-download catalog
type AppStore struct {
	Deps
	now func() time.Time
}

func NewAppStore(d Deps) *AppStore {
	d.Notify = orNopNotifier(d.Notify)
	d.Remote = orNopRemote(d.Remote)
	return &AppStore{Deps: d, now: time.Now}
}

func (s *AppStore) validateFields(actor Actor, name, url string) string {
	if strings.TrimSpace(name) == "" {
		return "App name is required"
	}
	if ok, msg := s.Validate.CheckText("name", name, actor.Username); !ok {
		return msg
	}
	if !input.ValidURL(url) {
		return "Download URL must be a valid http(s) URL"
	}
	return ""
}

func (s *AppStore) duplicateName(name string, excludeID uint64) (bool, error) {
	var count int64
	q := s.DB.Model(&entity.App{}).Where("LOWER(name) = LOWER(?)", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Add inserts a new catalog entry. Names are unique case-insensitively
func (s *AppStore) Add(actor Actor, name, url string) entity.Result[entity.App] {
	if !s.Perms.Can(actor.Role, perm.ManageIPTVApps) {
		return entity.Fail[entity.App]("You are not allowed to manage apps")
	}
	if msg := s.validateFields(actor, name, url); msg != "" {
		return entity.Fail[entity.App](msg)
	}
	dup, err := s.duplicateName(name, 0)
	if err != nil {
		return entity.Fail[entity.App]("Could not check for duplicates")
	}
	if dup {
		return entity.Fail[entity.App]("An app with this name already exists")
	}

	a := entity.App{
		Name:        strings.TrimSpace(name),
		DownloadURL: url,
		Created:     s.now(),
		CreatedBy:   actor.Username,
	}
	if err := s.DB.Create(&a).Error; err != nil {
		s.Log.Logf("Could not create app %s: %v", name, err)
		return entity.Fail[entity.App]("Could not add the app")
	}

	s.Audit.Infof("APP_ADDED", actor.Username, map[string]any{"name": a.Name})
	s.Notify.NotifyChange(entity.TypeApps, a)
	return entity.Ok(a)
}

// Edit updates an entry and stamps Updated
func (s *AppStore) Edit(actor Actor, id uint64, name, url string) entity.Result[entity.App] {
	if !s.Perms.Can(actor.Role, perm.ManageIPTVApps) {
		return entity.Fail[entity.App]("You are not allowed to manage apps")
	}
	var a entity.App
	if err := s.DB.First(&a, id).Error; err != nil {
		return entity.Fail[entity.App]("App not found")
	}
	if msg := s.validateFields(actor, name, url); msg != "" {
		return entity.Fail[entity.App](msg)
	}
	dup, err := s.duplicateName(name, id)
	if err != nil {
		return entity.Fail[entity.App]("Could not check for duplicates")
	}
	if dup {
		return entity.Fail[entity.App]("An app with this name already exists")
	}

	now := s.now()
	a.Name = strings.TrimSpace(name)
	a.DownloadURL = url
	a.Updated = &now
	if err := s.DB.Save(&a).Error; err != nil {
		return entity.Fail[entity.App]("Could not save the app")
	}

	s.Audit.Infof("APP_UPDATED", actor.Username, map[string]any{"name": a.Name})
	s.Notify.NotifyChange(entity.TypeApps, a)
	return entity.Ok(a)
}

// Delete removes an entry, remote copy first
func (s *AppStore) Delete(actor Actor, id uint64) entity.Result[struct{}] {
	if !s.Perms.Can(actor.Role, perm.ManageIPTVApps) {
		return entity.Fail[struct{}]("You are not allowed to manage apps")
	}
	var a entity.App
	if err := s.DB.First(&a, id).Error; err != nil {
		return entity.Fail[struct{}]("App not found")
	}

	offline := false
	if err := s.Remote.DeleteRemote(entity.TypeApps, id); err != nil {
		if !errors.Is(err, ErrOffline) {
			s.Audit.Errorf("APP_DELETE_FAILED", actor.Username, map[string]any{"name": a.Name, "error": err.Error()})
			return entity.Fail[struct{}]("Could not delete the remote copy")
		}
		offline = true
	}
	if err := s.DB.Delete(&entity.App{}, id).Error; err != nil {
		return entity.Fail[struct{}]("Could not delete the app")
	}

	s.Audit.Infof("APP_DELETED", actor.Username, map[string]any{"name": a.Name})
	s.Notify.NotifyDeleted(entity.TypeApps)
	if offline {
		return entity.Result[struct{}]{Success: true, Offline: true, Message: "Deleted locally, remote delete queued"}
	}
	return entity.Ok(struct{}{})
}

// List returns the catalog alphabetically
func (s *AppStore) List(actor Actor) entity.Result[[]entity.App] {
	if !s.Perms.Can(actor.Role, perm.ViewIPTVApps) {
		return entity.Fail[[]entity.App]("You are not allowed to view apps")
	}
	var apps []entity.App
	if err := s.DB.Order("LOWER(name)").Find(&apps).Error; err != nil {
		return entity.Fail[[]entity.App]("Could not load the catalog")
	}
	return entity.Ok(apps)
}

// MergeRemote replaces the whole catalog with the incoming documents
func (s *AppStore) MergeRemote(incoming []entity.App) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.App{}).Error; err != nil {
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
func (s *AppStore) UpsertItem(doc entity.App) error {
	if doc.ID == 0 {
		return nil
	}
	return s.DB.Save(&doc).Error
}
