// Package section maintains the ordered collection of named sections that
// make up an authoring document. Structural mutations (add, remove, reduce)
// recompute every order value from sequence position, so orders are always
// the contiguous range 1..N.
package section

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-formsession/pkg/fragment"
)

// FormType describes how a document presents its sections.
type FormType string

const (
	// TypeSingle documents hold exactly one section at order 1.
	TypeSingle FormType = "single"
	// TypeMultiStep documents hold one or more ordered sections.
	TypeMultiStep FormType = "multi-step"
)

var (
	// ErrInvalidName rejects empty or whitespace-only section names.
	ErrInvalidName = errors.New("section: name is empty")
	// ErrLastSection rejects removing the only remaining section.
	ErrLastSection = errors.New("section: cannot remove the last section")
)

// Section is one ordered sub-document. Content holds the encoded fragment
// produced by the codec; the store treats it as opaque.
type Section struct {
	ID      string `json:"section_id"`
	Name    string `json:"section_name"`
	Order   int    `json:"order"`
	Content string `json:"form_json"`
}

// Option customises store construction.
type Option func(*Store)

// WithIDGenerator overrides section id generation. Useful for deterministic
// tests; the generator must never return an id already present in the store,
// the store retries until it gets a fresh one.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithSeed replaces the initial section set. Orders are renumbered from the
// slice position. An empty seed falls back to the default first section.
func WithSeed(sections []Section) Option {
	return func(s *Store) {
		s.seed = append([]Section(nil), sections...)
	}
}

// Store is the in-memory ordered section collection. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sections []Section
	newID    func() string
	seed     []Section
}

// NewStore returns a store holding the default first section unless a seed
// is supplied.
func NewStore(options ...Option) *Store {
	s := &Store{newID: NewID}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}

	if len(s.seed) > 0 {
		s.sections = s.seed
		s.seed = nil
		s.renumber()
	} else {
		s.sections = []Section{DefaultFirst()}
	}
	return s
}

// DefaultFirst is the section every fresh document starts with.
func DefaultFirst() Section {
	return Section{
		ID:      "section_1",
		Name:    "Section 1",
		Order:   1,
		Content: fragment.DefaultDocument,
	}
}

// Add appends a section with the trimmed name and a fresh unique id, at
// order N+1, seeded with the default empty document. Returns the new id.
func (s *Store) Add(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.freshID()
	s.sections = append(s.sections, Section{
		ID:      id,
		Name:    trimmed,
		Order:   len(s.sections) + 1,
		Content: fragment.DefaultDocument,
	})
	return id, nil
}

// Remove deletes the identified section and renumbers the remainder in their
// prior relative order. Removing the last remaining section fails with
// ErrLastSection and leaves the store unchanged.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sections) == 1 {
		return ErrLastSection
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("section: %q not found", id)
	}

	s.sections = append(s.sections[:idx], s.sections[idx+1:]...)
	s.renumber()
	return nil
}

// Rename updates the section's name. The content fragment is untouched.
// Empty names after trimming fail with ErrInvalidName.
func (s *Store) Rename(id, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("section: %q not found", id)
	}
	s.sections[idx].Name = trimmed
	return nil
}

// SetContent replaces the section's encoded fragment. Semantic validation is
// the codec's job upstream.
func (s *Store) SetContent(id, encoded string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("section: %q not found", id)
	}
	s.sections[idx].Content = encoded
	return nil
}

// ReduceToSingle keeps only the first section (by current order), forcing
// its order to 1 and discarding the rest. Destructive; the controller is
// responsible for confirming with the user first.
func (s *Store) ReduceToSingle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sections) <= 1 {
		s.renumber()
		return
	}
	s.sections = s.sections[:1]
	s.sections[0].Order = 1
}

// Reset replaces the whole section set, renumbering from slice position. An
// empty replacement reinstates the default first section so the document
// never drops below one section.
func (s *Store) Reset(sections []Section) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sections) == 0 {
		s.sections = []Section{DefaultFirst()}
		return
	}
	s.sections = append([]Section(nil), sections...)
	s.renumber()
}

// Get returns the identified section.
func (s *Store) Get(id string) (Section, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Section{}, false
	}
	return s.sections[idx], true
}

// First returns the section at order 1.
func (s *Store) First() Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sections[0]
}

// Sections returns a defensive copy of the ordered section list.
func (s *Store) Sections() []Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Section(nil), s.sections...)
}

// Len reports the current section count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sections)
}

func (s *Store) indexOf(id string) int {
	for i := range s.sections {
		if s.sections[i].ID == id {
			return i
		}
	}
	return -1
}

// renumber recomputes orders from sequence position rather than patching
// individual fields, so gaps and duplicates cannot survive a mutation.
func (s *Store) renumber() {
	for i := range s.sections {
		s.sections[i].Order = i + 1
	}
}

func (s *Store) freshID() string {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}
