package session

import "fmt"

type entryKind int

const (
	kindCreate entryKind = iota
	kindEdit
	kindDuplicate
)

// EntryMode is the immutable reason a session started. It decides whether
// the local draft or the remote loader is authoritative at start, and
// whether identity fields are pre-filled or cleared.
type EntryMode struct {
	kind entryKind
	id   string
}

// Create starts a fresh document; the local draft slot is authoritative.
func Create() EntryMode {
	return EntryMode{kind: kindCreate}
}

// Edit opens an existing remote document for in-place update.
func Edit(id string) EntryMode {
	return EntryMode{kind: kindEdit, id: id}
}

// Duplicate borrows an existing remote document's content while forcing the
// author to supply new identity fields.
func Duplicate(id string) EntryMode {
	return EntryMode{kind: kindDuplicate, id: id}
}

// IsCreate reports whether this is a fresh-document session.
func (m EntryMode) IsCreate() bool { return m.kind == kindCreate }

// IsEdit reports whether this session updates an existing document.
func (m EntryMode) IsEdit() bool { return m.kind == kindEdit }

// IsDuplicate reports whether this session copies an existing document.
func (m EntryMode) IsDuplicate() bool { return m.kind == kindDuplicate }

// DocumentID returns the remote id for edit/duplicate sessions, empty for
// create.
func (m EntryMode) DocumentID() string { return m.id }

func (m EntryMode) String() string {
	switch m.kind {
	case kindEdit:
		return fmt.Sprintf("edit(%s)", m.id)
	case kindDuplicate:
		return fmt.Sprintf("duplicate(%s)", m.id)
	default:
		return "create"
	}
}
