/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package store

import (
	"testing"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
)

func (f *fixture) tickets() *TicketStore {
	s := NewTicketStore(f.deps())
	s.now = func() time.Time { return f.now }
	return s
}

var customerActor = Actor{ID: 7, Username: "alice", Role: entity.RoleUser}

func (f *fixture) openTicket(t *testing.T, s *TicketStore) entity.Ticket {
	t.Helper()
	res := s.Create(customerActor, "No channels", "technical", "high", "The playlist has been empty since yesterday")
	if !res.Success {
		t.Fatalf("create ticket: %s", res.Message)
	}
	return res.Data
}

func TestStaffReplyMovesOpenTicketToPending(t *testing.T) {
	f := newFixture(t)
	s := f.tickets()
	tk := f.openTicket(t, s)

	// The customer's own reply does not change the status
	res := s.Reply(customerActor, tk.ID, "Still empty today")
	if !res.Success {
		t.Fatalf("customer reply: %s", res.Message)
	}
	if res.Data.Status != entity.TicketOpen {
		t.Fatalf("customer reply moved the ticket to %q", res.Data.Status)
	}

	res = s.Reply(ownerActor, tk.ID, "We are looking into it")
	if !res.Success {
		t.Fatalf("staff reply: %s", res.Message)
	}
	if res.Data.Status != entity.TicketPending {
		t.Errorf("ticket is %q after a staff reply, want %q", res.Data.Status, entity.TicketPending)
	}
	if len(res.Data.Messages) != 3 {
		t.Errorf("ticket has %d messages, want 3", len(res.Data.Messages))
	}

	// A second staff reply leaves a pending ticket pending
	res = s.Reply(ownerActor, tk.ID, "Fixed on our side, please retry")
	if res.Data.Status != entity.TicketPending {
		t.Errorf("second staff reply moved the ticket to %q", res.Data.Status)
	}
}

func TestClosedTicketTakesNoChanges(t *testing.T) {
	f := newFixture(t)
	s := f.tickets()
	tk := f.openTicket(t, s)

	if res := s.UpdateStatus(ownerActor, tk.ID, entity.TicketClosed); !res.Success {
		t.Fatalf("close: %s", res.Message)
	}
	before := s.Get(ownerActor, tk.ID).Data

	if res := s.Reply(customerActor, tk.ID, "One more thing"); res.Success || res.Message != "This ticket is closed" {
		t.Errorf("reply on closed ticket: success=%v message=%q", res.Success, res.Message)
	}
	if res := s.Update(customerActor, tk.ID, "New subject", "billing", "low", "Rewritten"); res.Success || res.Message != "This ticket is closed" {
		t.Errorf("edit on closed ticket: success=%v message=%q", res.Success, res.Message)
	}

	after := s.Get(ownerActor, tk.ID).Data
	if after.Subject != before.Subject || after.Description != before.Description {
		t.Errorf("closed ticket was edited: %q / %q", after.Subject, after.Description)
	}
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("closed ticket grew from %d to %d messages", len(before.Messages), len(after.Messages))
	}
	if after.Status != entity.TicketClosed {
		t.Errorf("ticket left the closed state: %q", after.Status)
	}
}

func TestOnlyStaffMoveTicketStatus(t *testing.T) {
	f := newFixture(t)
	s := f.tickets()
	tk := f.openTicket(t, s)

	if res := s.UpdateStatus(customerActor, tk.ID, entity.TicketClosed); res.Success {
		t.Fatal("customer changed the ticket status")
	}
	if got := s.Get(ownerActor, tk.ID).Data.Status; got != entity.TicketOpen {
		t.Errorf("ticket is %q, want %q", got, entity.TicketOpen)
	}
}
