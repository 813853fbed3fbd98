package section_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsession/pkg/fragment"
	"github.com/goliatone/go-formsession/pkg/section"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}

func TestStore_StartsWithDefaultSection(t *testing.T) {
	s := section.NewStore()

	want := []section.Section{{
		ID:      "section_1",
		Name:    "Section 1",
		Order:   1,
		Content: fragment.DefaultDocument,
	}}
	if diff := cmp.Diff(want, s.Sections()); diff != "" {
		t.Fatalf("unexpected initial state (-want +got):\n%s", diff)
	}
}

func TestStore_AddAppendsAtNextOrder(t *testing.T) {
	s := section.NewStore(section.WithIDGenerator(sequentialIDs("sec")))

	id, err := s.Add("  Details  ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != "sec_1" {
		t.Fatalf("unexpected id %q", id)
	}

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("added section not found")
	}
	if got.Name != "Details" {
		t.Fatalf("name should be trimmed, got %q", got.Name)
	}
	if got.Order != 2 {
		t.Fatalf("expected order 2, got %d", got.Order)
	}
	if got.Content != fragment.DefaultDocument {
		t.Fatal("new section should start from the default document")
	}
}

func TestStore_AddRejectsEmptyNames(t *testing.T) {
	s := section.NewStore()

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := s.Add(name); !errors.Is(err, section.ErrInvalidName) {
			t.Fatalf("Add(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("rejected adds must not grow the store, len=%d", s.Len())
	}
}

func TestStore_OrdersStayContiguous(t *testing.T) {
	s := section.NewStore(section.WithIDGenerator(sequentialIDs("sec")))

	var ids []string
	for i := 0; i < 6; i++ {
		id, err := s.Add(fmt.Sprintf("Section %d", i+2))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		ids = append(ids, id)
		assertContiguous(t, s)
	}

	// Remove from the middle, the front, and the back.
	for _, id := range []string{ids[2], "section_1", ids[5]} {
		if err := s.Remove(id); err != nil {
			t.Fatalf("remove %q: %v", id, err)
		}
		assertContiguous(t, s)
	}
}

func assertContiguous(t *testing.T, s *section.Store) {
	t.Helper()
	for i, sec := range s.Sections() {
		if sec.Order != i+1 {
			t.Fatalf("order gap at index %d: got %d, want %d", i, sec.Order, i+1)
		}
	}
}

func TestStore_RemoveLastSectionFails(t *testing.T) {
	s := section.NewStore()
	before := s.Sections()

	err := s.Remove("section_1")
	if !errors.Is(err, section.ErrLastSection) {
		t.Fatalf("expected ErrLastSection, got %v", err)
	}
	if diff := cmp.Diff(before, s.Sections()); diff != "" {
		t.Fatalf("failed remove must leave store unchanged (-want +got):\n%s", diff)
	}
}

func TestStore_RemoveUnknownID(t *testing.T) {
	s := section.NewStore(section.WithIDGenerator(sequentialIDs("sec")))
	if _, err := s.Add("Second"); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := s.Remove("missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestStore_RenamePreservesContent(t *testing.T) {
	s := section.NewStore()
	if err := s.SetContent("section_1", `{"form":"custom"}`); err != nil {
		t.Fatalf("set content: %v", err)
	}

	if err := s.Rename("section_1", "  Intake  "); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got := s.First()
	if got.Name != "Intake" {
		t.Fatalf("expected trimmed rename, got %q", got.Name)
	}
	if got.Content != `{"form":"custom"}` {
		t.Fatal("rename must not disturb the content fragment")
	}
}

func TestStore_RenameRejectsEmptyName(t *testing.T) {
	s := section.NewStore()
	if err := s.Rename("section_1", "   "); !errors.Is(err, section.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if s.First().Name != "Section 1" {
		t.Fatal("rejected rename must leave the name unchanged")
	}
}

func TestStore_ReduceToSingleKeepsFirstByOrder(t *testing.T) {
	s := section.NewStore(section.WithIDGenerator(sequentialIDs("sec")))
	for _, name := range []string{"Second", "Third"} {
		if _, err := s.Add(name); err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
	}

	s.ReduceToSingle()

	secs := s.Sections()
	if len(secs) != 1 {
		t.Fatalf("expected one section, got %d", len(secs))
	}
	if secs[0].ID != "section_1" || secs[0].Order != 1 {
		t.Fatalf("expected first section at order 1, got %+v", secs[0])
	}
}

func TestStore_ResetRenumbersAndNeverEmpties(t *testing.T) {
	s := section.NewStore()

	s.Reset([]section.Section{
		{ID: "a", Name: "A", Order: 9, Content: "{}"},
		{ID: "b", Name: "B", Order: 3, Content: "{}"},
	})
	assertContiguous(t, s)

	s.Reset(nil)
	if diff := cmp.Diff([]section.Section{section.DefaultFirst()}, s.Sections()); diff != "" {
		t.Fatalf("empty reset should reinstate the default section (-want +got):\n%s", diff)
	}
}

func TestStore_FreshIDSkipsCollisions(t *testing.T) {
	// A generator that repeats "section_1" (already present) before yielding
	// a fresh id; Add must never hand out a duplicate.
	calls := 0
	gen := func() string {
		calls++
		if calls < 3 {
			return "section_1"
		}
		return "section_fresh"
	}

	s := section.NewStore(section.WithIDGenerator(gen))
	id, err := s.Add("Second")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != "section_fresh" {
		t.Fatalf("expected collision retry, got %q", id)
	}
}

func TestNewID_UniqueAndPrefixed(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := section.NewID()
		if !strings.HasPrefix(id, "section_") {
			t.Fatalf("unexpected id format %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
