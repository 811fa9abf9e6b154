package render

import (
	"html/template"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/validate"
)

type contactRowView struct {
	ID       string
	Email    string
	Avatar   Avatar
	Selected bool
}

type contactGroupView struct {
	Letter   string
	Contacts []contactRowView
}

// ContactList renders contacts grouped by first letter. selected reports
// which rows are highlighted.
func (r *Renderer) ContactList(groups []domain.ContactGroup, selected func(id string) bool) (template.HTML, error) {
	view := make([]contactGroupView, 0, len(groups))
	for _, g := range groups {
		gv := contactGroupView{Letter: g.Letter}
		for _, c := range g.Contacts {
			gv.Contacts = append(gv.Contacts, contactRowView{
				ID:       c.ID,
				Email:    c.Email,
				Avatar:   ContactAvatar(c),
				Selected: selected != nil && selected(c.ID),
			})
		}
		view = append(view, gv)
	}
	return r.execute("contactlist", view)
}

// ContactAvatar is the avatar of a known contact.
func ContactAvatar(c domain.Contact) Avatar {
	color := c.Color
	if color == "" {
		color = domain.ColorFor(c.Name)
	}
	return Avatar{Name: c.Name, Initials: domain.Initials(c.Name), Color: color}
}

func (r *Renderer) ContactDetail(c domain.Contact) (template.HTML, error) {
	a := ContactAvatar(c)
	c.Color = a.Color
	return r.execute("contactdetail", struct {
		domain.Contact
		Initials string
	}{c, a.Initials})
}

func (r *Renderer) ContactsPage(list, detail template.HTML) (template.HTML, error) {
	return r.execute("contactspage", struct{ List, Detail template.HTML }{list, detail})
}

// Summary renders the dashboard.
func (r *Renderer) Summary(s domain.Summary, userName string) (template.HTML, error) {
	counts := make(map[string]int, len(s.Counts))
	for st, n := range s.Counts {
		counts[string(st)] = n
	}
	return r.execute("summary", struct {
		Counts   map[string]int
		Total    int
		Urgent   int
		Deadline string
		Greeting string
		UserName string
	}{counts, s.Total, s.Urgent, s.Deadline, s.Greeting, userName})
}

// TaskFormContact is one selectable assignee.
type TaskFormContact struct {
	ID       string
	Avatar   Avatar
	Selected bool
}

type Option struct {
	Value    string
	Label    string
	Icon     string
	Selected bool
}

// TaskFormView is the state of the add/edit task form.
type TaskFormView struct {
	Mode        string
	TodoID      string
	Title       string
	Description string
	DueDate     string
	Priorities  []Option
	Categories  []Option
	Contacts    []TaskFormContact
	Subtasks    template.HTML
	Warnings    validate.Errors
}

// Warning is called from the template for each validated field.
func (v TaskFormView) Warning(field string) validate.Warning {
	w, _ := v.Warnings.For(field)
	return w
}

// PriorityOptions lists the priority buttons with the current one selected.
func PriorityOptions(current domain.Priority) []Option {
	labels := map[domain.Priority]string{
		domain.PriorityHigh:   "Urgent",
		domain.PriorityMedium: "Medium",
		domain.PriorityLow:    "Low",
	}
	out := make([]Option, 0, len(domain.Priorities))
	for i := len(domain.Priorities) - 1; i >= 0; i-- {
		p := domain.Priorities[i]
		out = append(out, Option{Value: string(p), Label: labels[p], Icon: PriorityIcon(p), Selected: p == current})
	}
	return out
}

func CategoryOptions(current string) []Option {
	out := make([]Option, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, Option{Value: c, Label: c, Selected: c == current})
	}
	return out
}

func (r *Renderer) TaskForm(v TaskFormView) (template.HTML, error) {
	return r.execute("taskform", v)
}

// LoginView is the state of the standalone login/sign-up page.
type LoginView struct {
	Mode     string
	Name     string
	Email    string
	Warnings validate.Errors
	Toasts   []notify.Toast
}

func (v LoginView) Warning(field string) validate.Warning {
	w, _ := v.Warnings.For(field)
	return w
}

func (r *Renderer) Login(v LoginView) (template.HTML, error) {
	if v.Mode != "signup" {
		v.Mode = "login"
	}
	return r.execute("login", v)
}
