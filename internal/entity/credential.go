/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// A shared portal+MAC credential from the free pool.
// Expired entries are swept away for good, there is no archive.
type FreeMAC struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	URL        string    `gorm:"not null" json:"url"`                  // Portal URL
	MACAddress string    `gorm:"uniqueIndex; not null" json:"macAddress"` // Uppercase XX:XX:XX:XX:XX:XX, unique across the pool
	ExpiryDate time.Time `json:"expiryDate"`                           // After this instant the entry is garbage
	Created    time.Time `json:"created"`
	CreatedBy  string    `json:"createdBy"` // Username of whoever added it
}

// Expired reports whether the entry is past its expiry date at the given instant
func (m *FreeMAC) Expired(now time.Time) bool {
	return !m.ExpiryDate.IsZero() && m.ExpiryDate.Before(now)
}

// A shared Xtream account from the free pool. Unique on the (url, username) pair.
type FreeXtream struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	URL        string    `gorm:"not null; uniqueIndex:idx_xtream_url_user" json:"url"`
	Username   string    `gorm:"not null; uniqueIndex:idx_xtream_url_user" json:"username"`
	Password   string    `json:"password"` // The shared account's own password, this is pool content and not a panel credential
	ExpiryDate time.Time `json:"expiryDate"`
	Created    time.Time `json:"created"`
	CreatedBy  string    `json:"createdBy"`
}

// Expired reports whether the entry is past its expiry date at the given instant
func (x *FreeXtream) Expired(now time.Time) bool {
	return !x.ExpiryDate.IsZero() && x.ExpiryDate.Before(now)
}
