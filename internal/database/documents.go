package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/join/internal/remote"
)

// Document holds the JSON tree of one namespace (the first path segment).
type Document struct {
	Key       string         `gorm:"primaryKey;size:255"`
	Body      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

// DocumentStore implements remote.Store on Postgres so the board can run
// without the hosted database.
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Migrate creates the documents table.
func (s *DocumentStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Document{})
}

func (s *DocumentStore) Read(ctx context.Context, path string) (json.RawMessage, error) {
	key, rest, err := split(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	err = s.db.WithContext(ctx).First(&doc, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return json.RawMessage("null"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	tree, err := decodeTree(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return remote.Marshal(remote.Lookup(tree, rest))
}

func (s *DocumentStore) Write(ctx context.Context, path string, value any, mode remote.Mode) error {
	key, rest, err := split(path)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc Document
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doc, "key = ?", key).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("write %s: %w", path, err)
		}

		var tree any
		if found {
			if tree, err = decodeTree(doc.Body); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
		tree, err = remote.Apply(tree, rest, value, mode)
		if err != nil {
			return err
		}

		if tree == nil {
			if !found {
				return nil
			}
			return tx.Delete(&Document{}, "key = ?", key).Error
		}
		body, err := json.Marshal(tree)
		if err != nil {
			return fmt.Errorf("write %s: encode: %w", path, err)
		}
		return tx.Save(&Document{Key: key, Body: datatypes.JSON(body)}).Error
	})
}

func split(path string) (string, []string, error) {
	segs, err := remote.Segments(path)
	if err != nil {
		return "", nil, err
	}
	if len(segs) == 0 {
		return "", nil, fmt.Errorf("%w: a namespace is required", remote.ErrInvalidPath)
	}
	return segs[0], segs[1:], nil
}

func decodeTree(body datatypes.JSON) (any, error) {
	var tree any
	if len(body) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}
