package domain

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Color string `json:"color"`
}

// Snapshot is what gets embedded into a todo's assignee map.
func (c Contact) Snapshot() ContactSnapshot {
	return ContactSnapshot{Name: c.Name, Email: c.Email, Phone: c.Phone, Color: c.Color}
}

// Initials returns the first letter of the first and the last word of name,
// upper-cased. A single word yields one letter.
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	out := firstLetter(words[0])
	if len(words) > 1 {
		out += firstLetter(words[len(words)-1])
	}
	return out
}

func firstLetter(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r))
}

// NewContactID derives an identifier from the name initials and the creation time.
func NewContactID(name string, now time.Time) string {
	return Initials(name) + strconv.FormatInt(now.UnixMilli(), 10)
}

var palette = []string{
	"#FF7A00", "#FF5EB3", "#6E52FF", "#9327FF", "#00BEE8",
	"#1FD7C1", "#FF745E", "#FFA35E", "#FC71FF", "#FFC701",
	"#0038FF", "#C3FF2B", "#FFE62B", "#FF4646", "#FFBB2B",
}

// UnknownColor is used for avatars whose contact no longer exists.
const UnknownColor = "#A8A8A8"

// ColorFor picks a palette swatch deterministically from the name.
func ColorFor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return palette[h.Sum32()%uint32(len(palette))]
}

// NormalizeEmail and NormalizePhone are the keys used for duplicate detection.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) || (r == '+' && b.Len() == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SortContacts orders contacts by name, case-insensitively.
func SortContacts(contacts []Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := strings.ToLower(contacts[i].Name), strings.ToLower(contacts[j].Name)
		if a != b {
			return a < b
		}
		return contacts[i].ID < contacts[j].ID
	})
}

// ContactGroup is a run of contacts sharing the same first letter.
type ContactGroup struct {
	Letter   string
	Contacts []Contact
}

// GroupContacts sorts contacts and splits them by their first letter.
func GroupContacts(contacts []Contact) []ContactGroup {
	sorted := append([]Contact(nil), contacts...)
	SortContacts(sorted)

	var groups []ContactGroup
	for _, c := range sorted {
		letter := firstLetter(strings.TrimSpace(c.Name))
		if letter == string(utf8.RuneError) || letter == "\x00" {
			letter = "#"
		}
		if n := len(groups); n == 0 || groups[n-1].Letter != letter {
			groups = append(groups, ContactGroup{Letter: letter})
		}
		groups[len(groups)-1].Contacts = append(groups[len(groups)-1].Contacts, c)
	}
	return groups
}
