package domain

import "strings"

// GuestKey is the shared namespace used by guest logins.
const GuestKey = "guest"

type User struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// CurrentUser is what the session remembers after login.
type CurrentUser struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Guest bool   `json:"guest,omitempty"`
}

// UserKey turns an e-mail address into a store key. The JSON store forbids
// '.', '#', '$', '[', ']' and '/' in keys.
func UserKey(email string) string {
	r := strings.NewReplacer(".", ",", "#", "_", "$", "_", "[", "_", "]", "_", "/", "_")
	return r.Replace(NormalizeEmail(email))
}
