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
	"gorm.io/gorm"
)

// TicketStore manages support tickets. A ticket and its messages form one
// document that replicates as a unit
type TicketStore struct {
	Deps
	now func() time.Time
}

func NewTicketStore(d Deps) *TicketStore {
	d.Notify = orNopNotifier(d.Notify)
	d.Remote = orNopRemote(d.Remote)
	return &TicketStore{Deps: d, now: time.Now}
}

func ticketActor(a Actor) entity.TicketActor {
	return entity.TicketActor{ID: a.ID, Username: a.Username, Role: a.Role}
}

func (s *TicketStore) get(id uint64) (*entity.Ticket, error) {
	var t entity.Ticket
	err := s.DB.First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &t, err
}

// canSee tells whether the actor may read the ticket: staff read everything,
// everyone else only their own
func canSee(actor Actor, t *entity.Ticket) bool {
	return actor.Role.IsStaff() || t.CreatedBy.ID == actor.ID
}

// Create opens a new ticket. The description doubles as the first message
func (s *TicketStore) Create(actor Actor, subject, category, priority, description string) entity.Result[entity.Ticket] {
	if actor.Anonymous() {
		return entity.Fail[entity.Ticket]("You must be logged in to open a ticket")
	}
	for field, text := range map[string]string{"subject": subject, "description": description} {
		if strings.TrimSpace(text) == "" {
			return entity.Fail[entity.Ticket]("Subject and description are required")
		}
		if ok, msg := s.Validate.CheckText(field, text, actor.Username); !ok {
			return entity.Fail[entity.Ticket](msg)
		}
	}

	now := s.now()
	t := entity.Ticket{
		Subject:     strings.TrimSpace(subject),
		Category:    category,
		Priority:    priority,
		Description: strings.TrimSpace(description),
		Status:      entity.TicketOpen,
		CreatedBy:   ticketActor(actor),
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages: []entity.TicketMessage{{
			ID:        1,
			Sender:    ticketActor(actor),
			Content:   strings.TrimSpace(description),
			CreatedAt: now,
			IsInitial: true,
		}},
	}
	if err := s.DB.Create(&t).Error; err != nil {
		s.Log.Logf("Could not create ticket: %v", err)
		return entity.Fail[entity.Ticket]("Could not open the ticket")
	}

	s.Audit.Infof("TICKET_CREATED", actor.Username, map[string]any{"subject": t.Subject})
	s.Notify.NotifyChange(entity.TypeTickets, t)
	return entity.Ok(t)
}

// List returns every ticket for staff, only the actor's own otherwise,
// newest first
func (s *TicketStore) List(actor Actor) entity.Result[[]entity.Ticket] {
	var tickets []entity.Ticket
	q := s.DB.Order("created_at DESC")
	if err := q.Find(&tickets).Error; err != nil {
		return entity.Fail[[]entity.Ticket]("Could not load tickets")
	}
	if actor.Role.IsStaff() {
		return entity.Ok(tickets)
	}
	own := make([]entity.Ticket, 0)
	for i := range tickets {
		if tickets[i].CreatedBy.ID == actor.ID {
			own = append(own, tickets[i])
		}
	}
	return entity.Ok(own)
}

// Get returns one ticket if the actor may see it
func (s *TicketStore) Get(actor Actor, id uint64) entity.Result[entity.Ticket] {
	t, err := s.get(id)
	if err != nil || t == nil {
		return entity.Fail[entity.Ticket]("Ticket not found")
	}
	if !canSee(actor, t) {
		return entity.Fail[entity.Ticket]("Ticket not found")
	}
	return entity.Ok(*t)
}

// Reply appends a message. A closed ticket takes no replies; a staff reply to
// an open ticket moves it to pending
func (s *TicketStore) Reply(actor Actor, id uint64, content string) entity.Result[entity.Ticket] {
	t, err := s.get(id)
	if err != nil || t == nil {
		return entity.Fail[entity.Ticket]("Ticket not found")
	}
	if !canSee(actor, t) {
		return entity.Fail[entity.Ticket]("Ticket not found")
	}
	if t.Status == entity.TicketClosed {
		return entity.Fail[entity.Ticket]("This ticket is closed")
	}
	if strings.TrimSpace(content) == "" {
		return entity.Fail[entity.Ticket]("A reply can not be empty")
	}
	if ok, msg := s.Validate.CheckText("reply", content, actor.Username); !ok {
		return entity.Fail[entity.Ticket](msg)
	}

	now := s.now()
	t.Messages = append(t.Messages, entity.TicketMessage{
		ID:        len(t.Messages) + 1,
		Sender:    ticketActor(actor),
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
	})
	if actor.Role.IsStaff() && t.Status == entity.TicketOpen {
		t.Status = entity.TicketPending
	}
	t.UpdatedAt = now
	if err := s.DB.Save(t).Error; err != nil {
		return entity.Fail[entity.Ticket]("Could not save the reply")
	}

	s.Audit.Infof("TICKET_REPLIED", actor.Username, map[string]any{"ticket": t.ID})
	s.Notify.NotifyChange(entity.TypeTickets, *t)
	return entity.Ok(*t)
}

// UpdateStatus moves a ticket through its lifecycle, staff only
func (s *TicketStore) UpdateStatus(actor Actor, id uint64, status entity.TicketStatus) entity.Result[entity.Ticket] {
	if !actor.Role.IsStaff() {
		return entity.Fail[entity.Ticket]("Only staff can change a ticket's status")
	}
	if !status.Valid() {
		return entity.Fail[entity.Ticket]("Unknown status")
	}
	t, err := s.get(id)
	if err != nil || t == nil {
		return entity.Fail[entity.Ticket]("Ticket not found")
	}

	t.Status = status
	t.UpdatedAt = s.now()
	if err := s.DB.Save(t).Error; err != nil {
		return entity.Fail[entity.Ticket]("Could not save the status")
	}

	s.Audit.Infof("TICKET_STATUS_CHANGED", actor.Username, map[string]any{"ticket": t.ID, "status": string(status)})
	s.Notify.NotifyChange(entity.TypeTickets, *t)
	return entity.Ok(*t)
}

// Update edits the ticket header. The initial message mirrors the description
// so both always tell the same story. Closed tickets are frozen
func (s *TicketStore) Update(actor Actor, id uint64, subject, category, priority, description string) entity.Result[entity.Ticket] {
	t, err := s.get(id)
	if err != nil || t == nil {
		return entity.Fail[entity.Ticket]("Ticket not found")
	}
	if !canSee(actor, t) {
		return entity.Fail[entity.Ticket]("Ticket not found")
	}
	if t.Status == entity.TicketClosed {
		return entity.Fail[entity.Ticket]("This ticket is closed")
	}
	for field, text := range map[string]string{"subject": subject, "description": description} {
		if strings.TrimSpace(text) == "" {
			return entity.Fail[entity.Ticket]("Subject and description are required")
		}
		if ok, msg := s.Validate.CheckText(field, text, actor.Username); !ok {
			return entity.Fail[entity.Ticket](msg)
		}
	}

	t.Subject = strings.TrimSpace(subject)
	t.Category = category
	t.Priority = priority
	t.Description = strings.TrimSpace(description)
	for i := range t.Messages {
		if t.Messages[i].IsInitial {
			t.Messages[i].Content = t.Description
			break
		}
	}
	t.UpdatedAt = s.now()
	if err := s.DB.Save(t).Error; err != nil {
		return entity.Fail[entity.Ticket]("Could not save the changes")
	}

	s.Audit.Infof("TICKET_UPDATED", actor.Username, map[string]any{"ticket": t.ID})
	s.Notify.NotifyChange(entity.TypeTickets, *t)
	return entity.Ok(*t)
}

// Delete removes a ticket, staff or the creator only, remote copy first
func (s *TicketStore) Delete(actor Actor, id uint64) entity.Result[struct{}] {
	t, err := s.get(id)
	if err != nil || t == nil {
		return entity.Fail[struct{}]("Ticket not found")
	}
	if !actor.Role.IsStaff() && t.CreatedBy.ID != actor.ID {
		return entity.Fail[struct{}]("You are not allowed to delete this ticket")
	}

	offline := false
	if err := s.Remote.DeleteRemote(entity.TypeTickets, id); err != nil {
		if !errors.Is(err, ErrOffline) {
			s.Audit.Errorf("TICKET_DELETE_FAILED", actor.Username, map[string]any{"ticket": id, "error": err.Error()})
			return entity.Fail[struct{}]("Could not delete the remote copy")
		}
		offline = true
	}
	if err := s.DB.Delete(&entity.Ticket{}, id).Error; err != nil {
		return entity.Fail[struct{}]("Could not delete the ticket")
	}

	s.Audit.Infof("TICKET_DELETED", actor.Username, map[string]any{"ticket": id})
	s.Notify.NotifyDeleted(entity.TypeTickets)
	if offline {
		return entity.Result[struct{}]{Success: true, Offline: true, Message: "Deleted locally, remote delete queued"}
	}
	return entity.Ok(struct{}{})
}

// MergeRemote replaces the whole collection with the incoming documents
func (s *TicketStore) MergeRemote(incoming []entity.Ticket) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.Ticket{}).Error; err != nil {
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
func (s *TicketStore) UpsertItem(doc entity.Ticket) error {
	if doc.ID == 0 {
		return nil
	}
	return s.DB.Save(&doc).Error
}
