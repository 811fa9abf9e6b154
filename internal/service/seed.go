package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/repository"
)

var demoContacts = []struct{ name, email, phone string }{
	{"Anton Mayer", "antonm@gmail.com", "+49 1111 111 11 1"},
	{"Anja Schulz", "schulz@hotmail.com", "+49 2222 222 22 2"},
	{"Benedikt Ziegler", "benedikt@gmail.com", "+49 3333 333 33 3"},
	{"David Eisenberg", "davidberg@gmail.com", "+49 4444 444 44 4"},
	{"Eva Fischer", "eva@gmail.com", "+49 5555 555 55 5"},
	{"Emmanuel Mauer", "emmanuelma@gmail.com", "+49 6666 666 66 6"},
}

var demoTodos = []struct {
	title, description, category string
	state                        domain.State
	priority                     domain.Priority
	dueInDays                    int
	assignees                    []int
	subtasks                     []string
}{
	{"Kochwelt Page & Recipe Recommender", "Build start page with recipe recommendation.", "User Story",
		domain.StateProgress, domain.PriorityMedium, 10, []int{0, 2, 4}, []string{"Implement Recipe Recommendation", "Start Page Layout"}},
	{"HTML Base Template Creation", "Create reusable HTML base templates.", "Technical Task",
		domain.StateFeedback, domain.PriorityLow, 14, []int{1, 3}, nil},
	{"Daily Kochwelt Recipe", "Implement daily recipe and portion calculator.", "User Story",
		domain.StateFeedback, domain.PriorityMedium, 21, []int{4, 5, 0}, nil},
	{"CSS Architecture Planning", "Define CSS naming conventions and structure.", "Technical Task",
		domain.StateDone, domain.PriorityHigh, 5, []int{2, 1}, []string{"Establish CSS Methodology", "Setup Base Styles"}},
	{"Contact Form & Imprint", "Create a contact form and imprint page.", "User Story",
		domain.StateTodo, domain.PriorityHigh, 3, []int{3}, []string{"Contact Form", "Imprint"}},
}

// SeedDemo replaces the contacts and todos of namespace with demo data.
func SeedDemo(ctx context.Context, namespace string, contacts repository.ContactRepository, todos repository.TodoRepository, now time.Time) error {
	existing, err := contacts.All(ctx, namespace)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	for id := range existing {
		if err := contacts.Delete(ctx, namespace, id); err != nil {
			return fmt.Errorf("clear contact %s: %w", id, err)
		}
	}

	made := make([]domain.Contact, len(demoContacts))
	for i, d := range demoContacts {
		c := domain.Contact{
			ID:    domain.NewContactID(d.name, now.Add(time.Duration(i)*time.Millisecond)),
			Name:  d.name,
			Email: d.email,
			Phone: d.phone,
			Color: domain.ColorFor(d.name),
		}
		if err := contacts.Put(ctx, namespace, c); err != nil {
			return fmt.Errorf("seed contact %s: %w", c.Name, err)
		}
		made[i] = c
	}

	board := make(map[string]domain.Todo, len(demoTodos))
	for i, d := range demoTodos {
		created := now.Add(time.Duration(i) * time.Millisecond)
		t := domain.Todo{
			ID:          domain.NewTodoID(d.category, created),
			Title:       d.title,
			Description: d.description,
			DueDate:     now.AddDate(0, 0, d.dueInDays).Format(domain.DateLayout),
			Priority:    d.priority,
			Category:    d.category,
			State:       d.state,
			CreatedAt:   created.UnixMilli(),
		}
		for _, idx := range d.assignees {
			if t.Assigned == nil {
				t.Assigned = map[string]domain.ContactSnapshot{}
			}
			t.Assigned[made[idx].Name] = made[idx].Snapshot()
		}
		for j, text := range d.subtasks {
			if t.Subtasks == nil {
				t.Subtasks = map[string]domain.Subtask{}
			}
			t.Subtasks[fmt.Sprintf("st%d%03d", created.UnixMilli(), j)] = domain.Subtask{Text: text, Completed: j == 0 && d.state == domain.StateDone}
		}
		board[t.ID] = t
	}
	if err := todos.ReplaceAll(ctx, namespace, board); err != nil {
		return fmt.Errorf("seed todos: %w", err)
	}
	return nil
}
