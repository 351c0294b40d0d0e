/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// TicketStatus is the lifecycle state of a support ticket
type TicketStatus string

const (
	TicketOpen    TicketStatus = "open"    // Waiting for staff
	TicketPending TicketStatus = "pending" // Staff replied, waiting for the user
	TicketClosed  TicketStatus = "closed"  // Done, frozen forever
)

// Valid reports whether the status is one of the three known ones
func (s TicketStatus) Valid() bool {
	return s == TicketOpen || s == TicketPending || s == TicketClosed
}

// TicketActor is the snapshot of whoever created a ticket or a message.
// A snapshot and not a reference, so a deleted account leaves tickets readable.
type TicketActor struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// A single message inside a ticket. Ids restart from 1 in every ticket,
// messages live inside the ticket document and never travel alone.
type TicketMessage struct {
	ID        int         `json:"id"`
	Sender    TicketActor `json:"sender"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	IsInitial bool        `json:"isInitial"` // The first message, carrying the ticket description
}

// A support ticket. The whole thing, messages included, is one document:
// it syncs as a unit and the last writer wins on the unit.
type Ticket struct {
	ID          uint64          `gorm:"primaryKey" json:"id"`
	Subject     string          `json:"subject"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority"`
	Description string          `json:"description"`
	Status      TicketStatus    `gorm:"default:open" json:"status"`
	CreatedBy   TicketActor     `gorm:"serializer:json" json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Messages    []TicketMessage `gorm:"serializer:json" json:"messages"`
}
