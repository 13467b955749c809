// Package document holds the shared document value and the three
// transitions that may change it.
package document

import (
	"strings"

	"github.com/samber/lo"
)

// DefaultWelcome is the content of a document that has never been edited.
const DefaultWelcome = "Welcome to the shared document! Start typing to collaborate with everyone connected."

// State is the process-wide shared document. ActiveUsers is an ordered
// set: insertion order, no duplicates.
//
// State is a plain value with no locking of its own; its owner
// serializes access.
type State struct {
	Content      string   `json:"content"`
	LastEditor   string   `json:"lastEditor"`
	LastEditedAt string   `json:"lastEditedAt"`
	ActiveUsers  []string `json:"activeUsers"`
}

// New returns the state of a document that has never been edited. An
// empty welcome falls back to DefaultWelcome.
func New(welcome string) State {
	if strings.TrimSpace(welcome) == "" {
		welcome = DefaultWelcome
	}
	return State{
		Content:     welcome,
		ActiveUsers: []string{},
	}
}

// Update replaces content, editor and edit time. The last call always
// wins; nothing is merged.
func (s *State) Update(content, editor, editedAt string) {
	s.Content = content
	s.LastEditor = editor
	s.LastEditedAt = editedAt
}

// Join adds user to the presence set and reports whether it was absent.
func (s *State) Join(user string) bool {
	if lo.Contains(s.ActiveUsers, user) {
		return false
	}
	s.ActiveUsers = append(s.ActiveUsers, user)
	return true
}

// Leave removes user from the presence set and reports whether it was
// present.
func (s *State) Leave(user string) bool {
	if !lo.Contains(s.ActiveUsers, user) {
		return false
	}
	s.ActiveUsers = lo.Without(s.ActiveUsers, user)
	return true
}

// Users returns a copy of the presence set, never nil.
func (s State) Users() []string {
	users := make([]string, len(s.ActiveUsers))
	copy(users, s.ActiveUsers)
	return users
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	s.ActiveUsers = s.Users()
	return s
}

// Normalize repairs a state decoded from storage: a nil presence set
// becomes empty and duplicate entries collapse to their first occurrence.
func (s *State) Normalize() {
	if s.ActiveUsers == nil {
		s.ActiveUsers = []string{}
		return
	}
	s.ActiveUsers = lo.Uniq(s.ActiveUsers)
}
