// Package render turns domain entities into HTML fragments. Every function
// is a pure mapping of its arguments; nothing here keeps state.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ContactLookup resolves assignee names against the current contacts.
type ContactLookup interface {
	ContactByName(name string) (domain.Contact, bool)
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("join").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var b bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(b.String()), nil
}

type Avatar struct {
	Name     string
	Initials string
	Color    string
}

// AvatarFor resolves name against contacts. A name that no longer matches a
// contact keeps its label but gets blank initials and a neutral colour.
func AvatarFor(name string, contacts ContactLookup) Avatar {
	if contacts != nil {
		if c, ok := contacts.ContactByName(name); ok {
			return ContactAvatar(c)
		}
	}
	return Avatar{Name: name, Color: domain.UnknownColor}
}

func avatars(t domain.Todo, contacts ContactLookup) []Avatar {
	names := t.AssignedNames()
	out := make([]Avatar, 0, len(names))
	for _, n := range names {
		out = append(out, AvatarFor(n, contacts))
	}
	return out
}

// PriorityIcon is the relative asset path for a priority.
func PriorityIcon(p domain.Priority) string {
	if p == "" {
		p = domain.PriorityMedium
	}
	return "./assets/img/prio-" + string(p) + ".svg"
}

func categoryClass(category string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(category), " ", "-"))
}

// Placeholder is shown in an empty column.
func Placeholder(state domain.State) string {
	return "No tasks " + state.Label()
}

type cardView struct {
	ID            string
	Title         string
	Excerpt       string
	Category      string
	CategoryClass string
	Priority      domain.Priority
	PriorityIcon  string
	Done, Total   int
	Percent       int
	Avatars       []Avatar
	Dragging      bool
}

const excerptLength = 60

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= excerptLength {
		return s
	}
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}

// Card renders a board card.
func (r *Renderer) Card(t domain.Todo, contacts ContactLookup, dragging bool) (template.HTML, error) {
	done, total := t.Progress()
	percent := 0
	if total > 0 {
		percent = done * 100 / total
	}
	return r.execute("card", cardView{
		ID:            t.ID,
		Title:         t.Title,
		Excerpt:       excerpt(t.Description),
		Category:      t.Category,
		CategoryClass: categoryClass(t.Category),
		Priority:      t.Priority,
		PriorityIcon:  PriorityIcon(t.Priority),
		Done:          done,
		Total:         total,
		Percent:       percent,
		Avatars:       avatars(t, contacts),
		Dragging:      dragging,
	})
}

type columnView struct {
	ID          domain.State
	Cards       []template.HTML
	Placeholder string
	Highlight   bool
}

// Column renders the drop area of one board column.
func (r *Renderer) Column(state domain.State, cards []template.HTML, highlight bool) (template.HTML, error) {
	return r.execute("column", columnView{
		ID:          state,
		Cards:       cards,
		Placeholder: Placeholder(state),
		Highlight:   highlight,
	})
}

// BoardColumn pairs a rendered column with its heading.
type BoardColumn struct {
	ID    domain.State
	Label string
	HTML  template.HTML
}

func (r *Renderer) Board(columns map[domain.State]template.HTML, query string) (template.HTML, error) {
	view := struct {
		Query   string
		Columns []BoardColumn
	}{Query: query}
	for _, st := range domain.States {
		view.Columns = append(view.Columns, BoardColumn{ID: st, Label: st.Label(), HTML: columns[st]})
	}
	return r.execute("board", view)
}

// SubtaskRow is one subtask line, either shown or being edited. Toggle rows
// carry a completion checkbox (detail view); the others edit/delete icons.
type SubtaskRow struct {
	ID        string
	Text      string
	Completed bool
	Editing   bool
	Toggle    bool
}

func (r *Renderer) Subtasks(rows []SubtaskRow) (template.HTML, error) {
	return r.execute("subtasks", rows)
}

type detailView struct {
	ID            string
	Title         string
	Description   template.HTML
	Category      string
	CategoryClass string
	DueDate       string
	Priority      domain.Priority
	PriorityLabel string
	PriorityIcon  string
	Avatars       []Avatar
	Subtasks      template.HTML
}

// Detail renders the task modal; the description is Markdown.
func (r *Renderer) Detail(t domain.Todo, contacts ContactLookup) (template.HTML, error) {
	rows := make([]SubtaskRow, 0, len(t.Subtasks))
	for _, id := range t.SubtaskIDs() {
		st := t.Subtasks[id]
		rows = append(rows, SubtaskRow{ID: id, Text: st.Text, Completed: st.Completed, Toggle: true})
	}
	subtasks, err := r.Subtasks(rows)
	if err != nil {
		return "", err
	}
	label := string(t.Priority)
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return r.execute("detail", detailView{
		ID:            t.ID,
		Title:         t.Title,
		Description:   Markdown(t.Description),
		Category:      t.Category,
		CategoryClass: categoryClass(t.Category),
		DueDate:       t.DueDate,
		Priority:      t.Priority,
		PriorityLabel: label,
		PriorityIcon:  PriorityIcon(t.Priority),
		Avatars:       avatars(t, contacts),
		Subtasks:      subtasks,
	})
}

func (r *Renderer) Toast(t notify.Toast) (template.HTML, error) {
	return r.execute("toast", t)
}

// PageData is the shell around every full page.
type PageData struct {
	Title        string
	Active       string
	UserName     string
	UserInitials string
	Body         template.HTML
	Toasts       []notify.Toast
}

func (r *Renderer) Page(p PageData) (template.HTML, error) {
	if p.UserInitials == "" {
		p.UserInitials = domain.Initials(p.UserName)
	}
	return r.execute("page", p)
}
