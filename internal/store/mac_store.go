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

// MACView is a pool entry decorated with its expiry status for the UI
type MACView struct {
	entity.FreeMAC
	Expired  bool `json:"expired"`
	DaysLeft int  `json:"daysLeft"` // 0 when already expired
}

// MACStore manages the free MAC pool
type MACStore struct {
	Deps
	now func() time.Time
}

func NewMACStore(d Deps) *MACStore {
	d.Notify = orNopNotifier(d.Notify)
	d.Remote = orNopRemote(d.Remote)
	return &MACStore{Deps: d, now: time.Now}
}

// Add inserts a new pool entry. MACs are stored uppercased and must be unique
func (s *MACStore) Add(actor Actor, url, mac string, expiry time.Time) entity.Result[entity.FreeMAC] {
	if !s.Perms.Can(actor.Role, perm.ManageFreeMAC) {
		return entity.Fail[entity.FreeMAC]("You are not allowed to manage free MACs")
	}
	if !input.ValidURL(url) {
		return entity.Fail[entity.FreeMAC]("Portal URL must be a valid http(s) URL")
	}
	if !input.ValidMAC(mac) {
		return entity.Fail[entity.FreeMAC]("MAC address must look like 00:1A:2B:3C:4D:5E")
	}
	mac = strings.ToUpper(strings.ReplaceAll(mac, "-", ":"))

	var count int64
	if err := s.DB.Model(&entity.FreeMAC{}).Where("mac_address = ?", mac).Count(&count).Error; err != nil {
		return entity.Fail[entity.FreeMAC]("Could not check for duplicates")
	}
	if count > 0 {
		return entity.Fail[entity.FreeMAC]("This MAC address is already in the pool")
	}

	m := entity.FreeMAC{
		URL:        url,
		MACAddress: mac,
		ExpiryDate: expiry,
		Created:    s.now(),
		CreatedBy:  actor.Username,
	}
	if err := s.DB.Create(&m).Error; err != nil {
		s.Log.Logf("Could not create free MAC %s: %v", mac, err)
		return entity.Fail[entity.FreeMAC]("Could not add the entry")
	}

	s.Audit.Infof("FREE_MAC_ADDED", actor.Username, map[string]any{"mac": mac})
	s.Notify.NotifyChange(entity.TypeMACs, m)
	return entity.Ok(m)
}

// Edit updates an existing entry, keeping the uniqueness rule
func (s *MACStore) Edit(actor Actor, id uint64, url, mac string, expiry time.Time) entity.Result[entity.FreeMAC] {
	if !s.Perms.Can(actor.Role, perm.ManageFreeMAC) {
		return entity.Fail[entity.FreeMAC]("You are not allowed to manage free MACs")
	}
	var m entity.FreeMAC
	if err := s.DB.First(&m, id).Error; err != nil {
		return entity.Fail[entity.FreeMAC]("Entry not found")
	}
	if !input.ValidURL(url) {
		return entity.Fail[entity.FreeMAC]("Portal URL must be a valid http(s) URL")
	}
	if !input.ValidMAC(mac) {
		return entity.Fail[entity.FreeMAC]("MAC address must look like 00:1A:2B:3C:4D:5E")
	}
	mac = strings.ToUpper(strings.ReplaceAll(mac, "-", ":"))

	var count int64
	if err := s.DB.Model(&entity.FreeMAC{}).Where("mac_address = ? AND id <> ?", mac, id).Count(&count).Error; err != nil {
		return entity.Fail[entity.FreeMAC]("Could not check for duplicates")
	}
	if count > 0 {
		return entity.Fail[entity.FreeMAC]("This MAC address is already in the pool")
	}

	m.URL = url
	m.MACAddress = mac
	m.ExpiryDate = expiry
	if err := s.DB.Save(&m).Error; err != nil {
		return entity.Fail[entity.FreeMAC]("Could not save the entry")
	}

	s.Audit.Infof("FREE_MAC_UPDATED", actor.Username, map[string]any{"mac": mac})
	s.Notify.NotifyChange(entity.TypeMACs, m)
	return entity.Ok(m)
}

// Delete removes an entry, remote copy first
func (s *MACStore) Delete(actor Actor, id uint64) entity.Result[struct{}] {
	if !s.Perms.Can(actor.Role, perm.ManageFreeMAC) {
		return entity.Fail[struct{}]("You are not allowed to manage free MACs")
	}
	var m entity.FreeMAC
	if err := s.DB.First(&m, id).Error; err != nil {
		return entity.Fail[struct{}]("Entry not found")
	}

	offline := false
	if err := s.Remote.DeleteRemote(entity.TypeMACs, id); err != nil {
		if !errors.Is(err, ErrOffline) {
			s.Audit.Errorf("FREE_MAC_DELETE_FAILED", actor.Username, map[string]any{"mac": m.MACAddress, "error": err.Error()})
			return entity.Fail[struct{}]("Could not delete the remote copy")
		}
		offline = true
	}
	if err := s.DB.Delete(&entity.FreeMAC{}, id).Error; err != nil {
		return entity.Fail[struct{}]("Could not delete the entry")
	}

	s.Audit.Infof("FREE_MAC_DELETED", actor.Username, map[string]any{"mac": m.MACAddress})
	s.Notify.NotifyDeleted(entity.TypeMACs)
	if offline {
		return entity.Result[struct{}]{Success: true, Offline: true, Message: "Deleted locally, remote delete queued"}
	}
	return entity.Ok(struct{}{})
}

// List returns the pool sorted by expiry, soonest first, with expiry status
func (s *MACStore) List(actor Actor) entity.Result[[]MACView] {
	if !s.Perms.Can(actor.Role, perm.ViewFreeMAC) {
		return entity.Fail[[]MACView]("You are not allowed to view free MACs")
	}
	var macs []entity.FreeMAC
	if err := s.DB.Order("expiry_date").Find(&macs).Error; err != nil {
		return entity.Fail[[]MACView]("Could not load the pool")
	}
	now := s.now()
	out := make([]MACView, 0, len(macs))
	for i := range macs {
		v := MACView{FreeMAC: macs[i], Expired: macs[i].Expired(now)}
		if !v.Expired {
			v.DaysLeft = int(macs[i].ExpiryDate.Sub(now).Hours() / 24)
		}
		out = append(out, v)
	}
	return entity.Ok(out)
}

// SweepExpired destructively removes every entry past its expiry and reports
// how many went
func (s *MACStore) SweepExpired() (int, error) {
	res := s.DB.Where("expiry_date < ?", s.now()).Delete(&entity.FreeMAC{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.Audit.Infof("FREE_MAC_SWEEP", "", map[string]any{"removed": res.RowsAffected})
		s.Notify.NotifyDeleted(entity.TypeMACs)
	}
	return int(res.RowsAffected), nil
}

// MergeRemote replaces the whole pool with the incoming documents
func (s *MACStore) MergeRemote(incoming []entity.FreeMAC) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.FreeMAC{}).Error; err != nil {
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
func (s *MACStore) UpsertItem(doc entity.FreeMAC) error {
	if doc.ID == 0 {
		return nil
	}
	return s.DB.Save(&doc).Error
}
