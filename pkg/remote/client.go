// Package remote defines the narrow contract the authoring session holds
// against the backend template API: fetch one document, create or update one
// document, resolve a customer display name. The full admin REST surface
// stays outside this module.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Record is the remote document as the backend returns it. FormJSON is kept
// raw: its shape (single document vs. {"sections": [...]}) is resolved by
// the Loader.
type Record struct {
	ID           string          `json:"id"`
	TemplateName string          `json:"template_name"`
	Version      int             `json:"version"`
	Status       string          `json:"status,omitempty"`
	Description  string          `json:"description,omitempty"`
	SheetURL     string          `json:"sheet_url,omitempty"`
	CustomerID   int             `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	FormJSON     json.RawMessage `json:"form_json"`
}

// Payload is the save body emitted to create/update. FormJSON carries either
// a single decoded fragment or {"sections": []PayloadSection}.
type Payload struct {
	TemplateName string `json:"template_name"`
	CustomerID   int    `json:"customer,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	SheetURL     string `json:"sheet_url,omitempty"`
	Status       string `json:"status"`
	Description  string `json:"description,omitempty"`
	FormJSON     any    `json:"form_json"`
}

// PayloadSection is one ordered entry of a multi-step save body.
type PayloadSection struct {
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
	Order       int    `json:"order"`
	FormJSON    any    `json:"form_json"`
}

// MultiStepForm wraps ordered payload sections for a multi-step save body.
type MultiStepForm struct {
	Sections []PayloadSection `json:"sections"`
}

// Client talks to the backend template API.
type Client interface {
	Fetch(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, payload Payload) (Record, error)
	Update(ctx context.Context, id string, payload Payload) (Record, error)

	// CustomerName resolves a display name for a customer id. Lookup
	// failure is tolerated by callers; the name stays blank.
	CustomerName(ctx context.Context, customerID int) (string, error)
}

// FieldErrors maps payload field names to backend validation messages, the
// {"field": ["msg", ...]} shape the backend responds with on a 400.
type FieldErrors map[string][]string

// Fields returns the field names in stable order.
func (f FieldErrors) Fields() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f FieldErrors) String() string {
	var parts []string
	for _, name := range f.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(f[name], ", ")))
	}
	return strings.Join(parts, "; ")
}

// LoadError marks the one unrecoverable failure in the session: the remote
// fetch itself failed and the session cannot start.
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("remote: load %q: %v", e.ID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SubmitError is a recoverable save failure. Fields carries field-level
// messages when the backend provided them; Message is the generic fallback.
type SubmitError struct {
	Message string
	Fields  FieldErrors
	Err     error
}

func (e *SubmitError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("remote: submit: %s", e.Fields)
	}
	if e.Message != "" {
		return fmt.Sprintf("remote: submit: %s", e.Message)
	}
	return fmt.Sprintf("remote: submit: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
