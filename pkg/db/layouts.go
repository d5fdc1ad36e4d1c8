package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrLayoutNotFound = errors.New("accessory layout not found")

// DefaultRoom is the room every service lands in until the user arranges
// them.
const DefaultRoom = "Default Room"

// Room is a named group of services, identified by their unique ids.
type Room struct {
	Name     string   `json:"name"`
	Services []string `json:"services"`
}

// Layout is a user's ordered list of rooms.
type Layout []Room

// DefaultLayout returns a layout holding a single empty default room.
func DefaultLayout() Layout {
	return Layout{{Name: DefaultRoom, Services: []string{}}}
}

// StoredLayout is a layout together with its owner and last change.
type StoredLayout struct {
	Username  string
	Layout    Layout
	UpdatedAt time.Time
}

// LayoutStore persists accessory layouts per user.
type LayoutStore interface {
	Get(ctx context.Context, username string) (*StoredLayout, error)
	Save(ctx context.Context, username string, layout Layout) error
	Delete(ctx context.Context, username string) error
}

// Layouts returns a LayoutStore for this database.
func (db *DB) Layouts() LayoutStore {
	return &layoutStore{db: db}
}

// LayoutOrDefault returns the user's layout, or DefaultLayout when none
// was saved or the stored one cannot be read.
func LayoutOrDefault(ctx context.Context, store LayoutStore, username string) Layout {
	stored, err := store.Get(ctx, username)
	if err != nil || len(stored.Layout) == 0 {
		return DefaultLayout()
	}
	return stored.Layout
}

type layoutStore struct {
	db *DB
}

func (s *layoutStore) Get(ctx context.Context, username string) (*StoredLayout, error) {
	l := &StoredLayout{Username: username}
	var raw, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT layout, updated_at FROM accessory_layouts WHERE username = ?
	`, username).Scan(&raw, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &l.Layout); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	l.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return l, nil
}

func (s *layoutStore) Save(ctx context.Context, username string, layout Layout) error {
	if layout == nil {
		layout = Layout{}
	}
	for i := range layout {
		if layout[i].Services == nil {
			layout[i].Services = []string{}
		}
	}

	raw, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accessory_layouts (username, layout)
		VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET layout = excluded.layout, updated_at = datetime('now')
	`, username, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save layout: %w", err)
	}
	return nil
}

func (s *layoutStore) Delete(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accessory_layouts WHERE username = ?`, username)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLayoutNotFound
	}
	return nil
}
