/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package store

import (
	"encoding/json"
	"fmt"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"gorm.io/gorm"
)

// Registry routes incoming replicated documents to the right store. Both the
// sync engine and the peer bus talk to the stores only through here, so an
// unknown collection is a logged no-op instead of a crash
type Registry struct {
	Users    *UserStore
	MACs     *MACStore
	Xtreams  *XtreamStore
	Tickets  *TicketStore
	Apps     *AppStore
	Telegram *TelegramStore
	Log      nlog.Logger
}

// decodeInto round-trips a free-form document through json into a typed value
func decodeInto[T any](doc map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

func decodeSlice[T any](docs []map[string]any) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decodeInto[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ApplySnapshot replaces a whole local collection with the given documents.
// Users keep their local credentials when the snapshot was sanitized
func (r *Registry) ApplySnapshot(entityType string, docs []map[string]any) error {
	switch entityType {
	case entity.TypeUsers:
		users, err := decodeSlice[entity.User](docs)
		if err != nil {
			return fmt.Errorf("decode users snapshot: %w", err)
		}
		return r.Users.MergeRemote(users)
	case entity.TypeMACs:
		macs, err := decodeSlice[entity.FreeMAC](docs)
		if err != nil {
			return fmt.Errorf("decode macs snapshot: %w", err)
		}
		return r.MACs.MergeRemote(macs)
	case entity.TypeXtreams:
		xs, err := decodeSlice[entity.FreeXtream](docs)
		if err != nil {
			return fmt.Errorf("decode xtreams snapshot: %w", err)
		}
		return r.Xtreams.MergeRemote(xs)
	case entity.TypeTickets:
		ts, err := decodeSlice[entity.Ticket](docs)
		if err != nil {
			return fmt.Errorf("decode tickets snapshot: %w", err)
		}
		return r.Tickets.MergeRemote(ts)
	case entity.TypeApps:
		apps, err := decodeSlice[entity.App](docs)
		if err != nil {
			return fmt.Errorf("decode apps snapshot: %w", err)
		}
		return r.Apps.MergeRemote(apps)
	case entity.TypeTelegram:
		links, err := decodeSlice[entity.TelegramLinks](docs)
		if err != nil {
			return fmt.Errorf("decode telegram snapshot: %w", err)
		}
		return r.Telegram.MergeRemote(links)
	}
	r.Log.Logf("Ignoring snapshot for unknown collection %q", entityType)
	return nil
}

// UpsertItem merges one replicated document into its local collection.
// Applying the same document twice lands in the same state
func (r *Registry) UpsertItem(entityType string, doc map[string]any) error {
	switch entityType {
	case entity.TypeUsers:
		u, err := decodeInto[entity.User](doc)
		if err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		return r.Users.UpsertItem(u)
	case entity.TypeMACs:
		m, err := decodeInto[entity.FreeMAC](doc)
		if err != nil {
			return fmt.Errorf("decode mac: %w", err)
		}
		return r.MACs.UpsertItem(m)
	case entity.TypeXtreams:
		x, err := decodeInto[entity.FreeXtream](doc)
		if err != nil {
			return fmt.Errorf("decode xtream: %w", err)
		}
		return r.Xtreams.UpsertItem(x)
	case entity.TypeTickets:
		t, err := decodeInto[entity.Ticket](doc)
		if err != nil {
			return fmt.Errorf("decode ticket: %w", err)
		}
		return r.Tickets.UpsertItem(t)
	case entity.TypeApps:
		a, err := decodeInto[entity.App](doc)
		if err != nil {
			return fmt.Errorf("decode app: %w", err)
		}
		return r.Apps.UpsertItem(a)
	case entity.TypeTelegram:
		l, err := decodeInto[entity.TelegramLinks](doc)
		if err != nil {
			return fmt.Errorf("decode telegram: %w", err)
		}
		return r.Telegram.UpsertItem(l)
	}
	r.Log.Logf("Ignoring document for unknown collection %q", entityType)
	return nil
}

// FullSnapshot dumps every local collection as free-form documents, the
// payload of a FULL_DATA broadcast. User documents go out sanitized
func (r *Registry) FullSnapshot() (map[string][]map[string]any, error) {
	out := make(map[string][]map[string]any, 6)

	var users []entity.User
	if err := r.Users.db.Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		doc, err := toDoc(users[i].Safe())
		if err != nil {
			return nil, err
		}
		out[entity.TypeUsers] = append(out[entity.TypeUsers], doc)
	}

	if err := collect[entity.FreeMAC](r.MACs.DB, entity.TypeMACs, out); err != nil {
		return nil, err
	}
	if err := collect[entity.FreeXtream](r.Xtreams.DB, entity.TypeXtreams, out); err != nil {
		return nil, err
	}
	if err := collect[entity.Ticket](r.Tickets.DB, entity.TypeTickets, out); err != nil {
		return nil, err
	}
	if err := collect[entity.App](r.Apps.DB, entity.TypeApps, out); err != nil {
		return nil, err
	}
	if err := collect[entity.TelegramLinks](r.Telegram.DB, entity.TypeTelegram, out); err != nil {
		return nil, err
	}
	return out, nil
}

func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	err = json.Unmarshal(raw, &doc)
	return doc, err
}

func collect[T any](db *gorm.DB, entityType string, out map[string][]map[string]any) error {
	var rows []T
	if err := db.Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		doc, err := toDoc(rows[i])
		if err != nil {
			return err
		}
		out[entityType] = append(out[entityType], doc)
	}
	return nil
}
