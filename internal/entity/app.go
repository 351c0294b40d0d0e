/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// An entry of the app-download catalog. Names are unique case-insensitively.
type App struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex; not null" json:"name"`
	DownloadURL string     `gorm:"not null" json:"downloadUrl"`
	Created     time.Time  `json:"created"`
	CreatedBy   string     `json:"createdBy"`
	Updated     *time.Time `json:"updated,omitempty"` // Set on every edit, nil if never edited
}

// The Telegram contact links. A single keyed document, not a collection.
type TelegramLinks struct {
	ID      uint64 `gorm:"primaryKey" json:"-"` // Always 1, there is only one row
	Group   string `json:"group"`
	Channel string `json:"channel"`
	Contact string `json:"contact"`
}
