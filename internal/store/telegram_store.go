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

	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"gorm.io/gorm"
)

// TelegramStore manages the single Telegram-links document
type TelegramStore struct {
	Deps
}

func NewTelegramStore(d Deps) *TelegramStore {
	d.Notify = orNopNotifier(d.Notify)
	d.Remote = orNopRemote(d.Remote)
	return &TelegramStore{Deps: d}
}

// Get returns the links, zero values if never set
func (s *TelegramStore) Get(actor Actor) entity.Result[entity.TelegramLinks] {
	if !s.Perms.Can(actor.Role, perm.ViewTelegram) {
		return entity.Fail[entity.TelegramLinks]("You are not allowed to view the Telegram links")
	}
	var links entity.TelegramLinks
	err := s.DB.First(&links, 1).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Fail[entity.TelegramLinks]("Could not load the links")
	}
	links.ID = 1
	return entity.Ok(links)
}

// Set replaces the links
func (s *TelegramStore) Set(actor Actor, group, channel, contact string) entity.Result[entity.TelegramLinks] {
	if !s.Perms.Can(actor.Role, perm.ManageTelegram) {
		return entity.Fail[entity.TelegramLinks]("You are not allowed to manage the Telegram links")
	}
	for field, text := range map[string]string{"group": group, "channel": channel, "contact": contact} {
		if ok, msg := s.Validate.CheckText(field, text, actor.Username); !ok {
			return entity.Fail[entity.TelegramLinks](msg)
		}
	}

	links := entity.TelegramLinks{ID: 1, Group: group, Channel: channel, Contact: contact}
	if err := s.DB.Save(&links).Error; err != nil {
		return entity.Fail[entity.TelegramLinks]("Could not save the links")
	}

	s.Audit.Infof("TELEGRAM_UPDATED", actor.Username, nil)
	s.Notify.NotifyChange(entity.TypeTelegram, links)
	return entity.Ok(links)
}

// UpsertItem merges the incoming singleton document
func (s *TelegramStore) UpsertItem(doc entity.TelegramLinks) error {
	doc.ID = 1
	return s.DB.Save(&doc).Error
}

// MergeRemote keeps only the last incoming document, there is ever only one
func (s *TelegramStore) MergeRemote(incoming []entity.TelegramLinks) error {
	if len(incoming) == 0 {
		return s.DB.Where("1 = 1").Delete(&entity.TelegramLinks{}).Error
	}
	return s.UpsertItem(incoming[len(incoming)-1])
}
