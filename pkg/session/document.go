package session

import "github.com/goliatone/go-formsession/pkg/section"

// Document statuses accepted by the backend.
const (
	StatusDraft     = "draft"
	StatusCompleted = "completed"
)

// Editor is the narrow contract against the external visual editor.
// Snapshot may return a string or an arbitrary object graph; Load fails on
// fragments the editor cannot parse.
type Editor interface {
	Snapshot() (any, error)
	Load(encoded string) error
}

// Document is the authored artifact's metadata. Sections live in the
// section store; Version is read-only, set only from remote responses.
type Document struct {
	FormType     section.FormType
	TemplateName string
	CustomerID   int
	CustomerName string
	SheetURL     string
	Description  string
	Status       string
	Version      int
}

func defaultDocument() Document {
	return Document{
		FormType: section.TypeSingle,
		Status:   StatusDraft,
	}
}
