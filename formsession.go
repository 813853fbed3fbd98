// Package formsession manages the lifecycle of one editable-document
// authoring session: entry-mode resolution, draft persistence, section
// bookkeeping, and submission to the backend template API. The root package
// re-exports the session surface so most callers need a single import.
package formsession

import (
	"net/http"
	"time"

	"github.com/goliatone/go-formsession/internal/httpapi"
	"github.com/goliatone/go-formsession/internal/storage"
	"github.com/goliatone/go-formsession/pkg/draft"
	"github.com/goliatone/go-formsession/pkg/fragment"
	"github.com/goliatone/go-formsession/pkg/remote"
	"github.com/goliatone/go-formsession/pkg/section"
	"github.com/goliatone/go-formsession/pkg/session"
)

// Controller owns one authoring session; alias exported via the root package
// for convenience.
type Controller = session.Controller

// Option customises the controller.
type Option = session.Option

// EntryMode is the immutable reason a session started.
type EntryMode = session.EntryMode

// State is the controller's lifecycle position.
type State = session.State

// Document is the authored artifact's metadata.
type Document = session.Document

// Editor is the narrow contract against the external visual editor.
type Editor = session.Editor

// Notifier receives user-facing messages from the controller.
type Notifier = session.Notifier

// Section is one ordered sub-document of the authored form.
type Section = section.Section

// FormType describes how a document presents its sections.
type FormType = section.FormType

// DraftStore is the durable key-value contract backing the draft slot.
type DraftStore = draft.Store

// DraftRecord is the serialized snapshot of one authoring workflow.
type DraftRecord = draft.Record

// Client talks to the backend template API.
type Client = remote.Client

// FieldErrors maps payload field names to backend validation messages.
type FieldErrors = remote.FieldErrors

// Exported aliases for the form type constants.
const (
	TypeSingle    = section.TypeSingle
	TypeMultiStep = section.TypeMultiStep
)

// DefaultDocument is the encoded empty editor document every fresh section
// starts from.
const DefaultDocument = fragment.DefaultDocument

// New exposes the controller constructor from the top-level module.
func New(mode EntryMode, options ...Option) (*Controller, error) {
	return session.New(mode, options...)
}

// Create starts a fresh document; the local draft slot is authoritative.
func Create() EntryMode { return session.Create() }

// Edit opens an existing remote document for in-place update.
func Edit(id string) EntryMode { return session.Edit(id) }

// Duplicate borrows an existing remote document's content while forcing the
// author to supply new identity fields.
func Duplicate(id string) EntryMode { return session.Duplicate(id) }

// NewFileStore returns a draft store that persists records as files under
// dir, one file per key. It is the durable counterpart to the in-memory
// default.
func NewFileStore(dir string) (DraftStore, error) {
	return storage.NewFileStore(dir)
}

// NewHTTPClient builds the backend template client against baseURL,
// authenticating every request with the given token. A zero timeout keeps
// the client default.
func NewHTTPClient(baseURL, token string, timeout time.Duration) (Client, error) {
	opts := []httpapi.Option{httpapi.WithToken(token)}
	if timeout > 0 {
		opts = append(opts, httpapi.WithTimeout(timeout))
	}
	return httpapi.NewClient(baseURL, opts...)
}

// NewHTTPClientWith builds the backend template client around a caller-owned
// *http.Client, for hosts that manage transports themselves.
func NewHTTPClientWith(baseURL, token string, hc *http.Client) (Client, error) {
	return httpapi.NewClient(baseURL, httpapi.WithToken(token), httpapi.WithHTTPClient(hc))
}
