package repository

import (
	"context"
	"fmt"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/remote"
)

const todosCollection = "todos"

// TodoRepository defines the remote operations on a user's todo collection.
type TodoRepository interface {
	All(ctx context.Context, user string) (map[string]domain.Todo, error)
	Put(ctx context.Context, user string, todo domain.Todo) error
	// ReplaceAll pushes the full collection, as the board does after a drop.
	ReplaceAll(ctx context.Context, user string, todos map[string]domain.Todo) error
	PatchSubtask(ctx context.Context, user, todoID, subtaskID string, fields map[string]any) error
	Delete(ctx context.Context, user, id string) error
}

type remoteTodoRepository struct {
	store remote.Store
}

// NewTodoRepository wraps a remote store.
func NewTodoRepository(store remote.Store) TodoRepository {
	return &remoteTodoRepository{store: store}
}

func (r *remoteTodoRepository) All(ctx context.Context, user string) (map[string]domain.Todo, error) {
	raw, err := r.store.Read(ctx, remote.Path(user, todosCollection))
	if err != nil {
		return nil, err
	}
	todos := map[string]domain.Todo{}
	if err := remote.Decode(raw, &todos); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	// The key is authoritative; older records may lack the id field.
	for id, t := range todos {
		if t.ID != id {
			t.ID = id
			todos[id] = t
		}
	}
	return todos, nil
}

func (r *remoteTodoRepository) Put(ctx context.Context, user string, todo domain.Todo) error {
	if todo.ID == "" {
		return fmt.Errorf("%w: todo without id", remote.ErrInvalidPath)
	}
	return r.store.Write(ctx, remote.Path(user, todosCollection, todo.ID), todo, remote.ModePut)
}

func (r *remoteTodoRepository) ReplaceAll(ctx context.Context, user string, todos map[string]domain.Todo) error {
	return r.store.Write(ctx, remote.Path(user, todosCollection), todos, remote.ModePut)
}

func (r *remoteTodoRepository) PatchSubtask(ctx context.Context, user, todoID, subtaskID string, fields map[string]any) error {
	return r.store.Write(ctx, remote.Path(user, todosCollection, todoID, "subtasks", subtaskID), fields, remote.ModePatch)
}

func (r *remoteTodoRepository) Delete(ctx context.Context, user, id string) error {
	return r.store.Write(ctx, remote.Path(user, todosCollection, id), nil, remote.ModeDelete)
}
