/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

// Names of the synchronized entity collections. They double as broadcast
// entity types and as default remote collection names.
const (
	TypeUsers    = "users"
	TypeMACs     = "macs"
	TypeXtreams  = "xtreams"
	TypeTickets  = "tickets"
	TypeApps     = "apps"
	TypeTelegram = "telegram"
)

// Result is the envelope every store operation hands back to its caller.
// A failure is a value, never a panic: the UI only ever renders Message.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Offline bool   `json:"offline,omitempty"` // The remote leg of the operation was queued for later
	Data    T      `json:"data,omitempty"`
}

// Ok wraps a value in a successful result
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail builds a failed result carrying a message for the UI
func Fail[T any](message string) Result[T] {
	return Result[T]{Success: false, Message: message}
}
