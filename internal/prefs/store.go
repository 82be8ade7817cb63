// Package prefs is the device-local key/value store used by the client auth
// flow. Values live in a small sqlite file, grouped by namespace.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	NamespaceAuth   = "auth"
	NamespaceUnread = "unread"

	KeyEmail    = "email"
	KeyVerified = "verified"
)

// Entry is one stored value.
type Entry struct {
	Namespace string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"column:pref_key;primaryKey;size:191"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "preferences"
}

type Store struct {
	db *gorm.DB
}

// Open creates or opens the sqlite file at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening preferences: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the preferences table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating preferences: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the value and whether it was present.
func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("namespace = ? AND pref_key = ?", namespace, key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *Store) Put(ctx context.Context, namespace, key, value string) error {
	return put(s.db.WithContext(ctx), namespace, key, value)
}

func put(tx *gorm.DB, namespace, key, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Entry{Namespace: namespace, Key: key, Value: value}).Error
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	return s.db.WithContext(ctx).Where("namespace = ? AND pref_key = ?", namespace, key).Delete(&Entry{}).Error
}

// Clear removes every key in namespace.
func (s *Store) Clear(ctx context.Context, namespace string) error {
	return s.db.WithContext(ctx).Where("namespace = ?", namespace).Delete(&Entry{}).Error
}

// All returns the namespace as a map.
func (s *Store) All(ctx context.Context, namespace string) (map[string]string, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Where("namespace = ?", namespace).Find(&entries).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

// Session is what a verified device remembers about its user.
type Session struct {
	Email    string
	Verified bool
}

// SaveSession records a verified login.
func (s *Store) SaveSession(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := put(tx, NamespaceAuth, KeyEmail, email); err != nil {
			return err
		}
		return put(tx, NamespaceAuth, KeyVerified, "true")
	})
}

// LoadSession reads the auth namespace. A missing or unverified session is
// returned with Verified false.
func (s *Store) LoadSession(ctx context.Context) (Session, error) {
	values, err := s.All(ctx, NamespaceAuth)
	if err != nil {
		return Session{}, err
	}
	verified, _ := strconv.ParseBool(values[KeyVerified])
	return Session{Email: values[KeyEmail], Verified: verified}, nil
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.Clear(ctx, NamespaceAuth)
}

type unreadBlob struct {
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Increment bumps the unread counter for a conversation and returns it.
func (s *Store) Increment(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e Entry
		err := tx.Where("namespace = ? AND pref_key = ?", NamespaceUnread, conversationID).Take(&e).Error
		var blob unreadBlob
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(e.Value), &blob); err != nil {
				// A corrupt counter restarts from zero.
				blob = unreadBlob{}
			}
		}

		blob.Count++
		blob.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(blob)
		if err != nil {
			return err
		}
		count = blob.Count
		return put(tx, NamespaceUnread, conversationID, string(raw))
	})
	return count, err
}

// Reset marks a conversation read.
func (s *Store) Reset(ctx context.Context, conversationID string) error {
	return s.Delete(ctx, NamespaceUnread, conversationID)
}

// Counts returns unread counters keyed by conversation.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	values, err := s.All(ctx, NamespaceUnread)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(values))
	for id, raw := range values {
		var blob unreadBlob
		if err := json.Unmarshal([]byte(raw), &blob); err != nil {
			continue
		}
		out[id] = blob.Count
	}
	return out, nil
}
