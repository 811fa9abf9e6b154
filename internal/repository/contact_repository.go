package repository

import (
	"context"
	"fmt"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/remote"
)

const (
	contactsCollection = "contacts"
	usersNamespace     = "users"
)

type ContactRepository interface {
	All(ctx context.Context, user string) (map[string]domain.Contact, error)
	Put(ctx context.Context, user string, contact domain.Contact) error
	Delete(ctx context.Context, user, id string) error
}

type remoteContactRepository struct {
	store remote.Store
}

func NewContactRepository(store remote.Store) ContactRepository {
	return &remoteContactRepository{store: store}
}

func (r *remoteContactRepository) All(ctx context.Context, user string) (map[string]domain.Contact, error) {
	raw, err := r.store.Read(ctx, remote.Path(user, contactsCollection))
	if err != nil {
		return nil, err
	}
	contacts := map[string]domain.Contact{}
	if err := remote.Decode(raw, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	for id, c := range contacts {
		if c.ID != id {
			c.ID = id
			contacts[id] = c
		}
	}
	return contacts, nil
}

func (r *remoteContactRepository) Put(ctx context.Context, user string, contact domain.Contact) error {
	if contact.ID == "" {
		return fmt.Errorf("%w: contact without id", remote.ErrInvalidPath)
	}
	return r.store.Write(ctx, remote.Path(user, contactsCollection, contact.ID), contact, remote.ModePut)
}

func (r *remoteContactRepository) Delete(ctx context.Context, user, id string) error {
	return r.store.Write(ctx, remote.Path(user, contactsCollection, id), nil, remote.ModeDelete)
}

// UserRepository stores accounts under users/{key}.
type UserRepository interface {
	// Find returns nil without error when no account exists.
	Find(ctx context.Context, key string) (*domain.User, error)
	Put(ctx context.Context, key string, user domain.User) error
}

type remoteUserRepository struct {
	store remote.Store
}

func NewUserRepository(store remote.Store) UserRepository {
	return &remoteUserRepository{store: store}
}

func (r *remoteUserRepository) Find(ctx context.Context, key string) (*domain.User, error) {
	raw, err := r.store.Read(ctx, remote.Path(usersNamespace, key))
	if err != nil {
		return nil, err
	}
	if remote.IsNull(raw) {
		return nil, nil
	}
	var u domain.User
	if err := remote.Decode(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (r *remoteUserRepository) Put(ctx context.Context, key string, user domain.User) error {
	return r.store.Write(ctx, remote.Path(usersNamespace, key), user, remote.ModePut)
}
