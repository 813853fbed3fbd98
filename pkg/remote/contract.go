package remote

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed contract.yaml
var contractYAML []byte

var (
	contractOnce   sync.Once
	contractSchema *openapi3.Schema
	contractErr    error
)

func payloadSchema() (*openapi3.Schema, error) {
	contractOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(contractYAML)
		if err != nil {
			contractErr = fmt.Errorf("remote: load contract: %w", err)
			return
		}
		ref, ok := doc.Components.Schemas["DynamicFormPayload"]
		if !ok || ref.Value == nil {
			contractErr = fmt.Errorf("remote: contract is missing DynamicFormPayload")
			return
		}
		contractSchema = ref.Value
	})
	return contractSchema, contractErr
}

// ValidatePayload checks a save payload against the embedded backend
// contract before dispatch, so obviously malformed bodies fail locally with
// the same field-level shape a backend rejection would carry. Returns a
// *SubmitError on mismatch, nil otherwise.
func ValidatePayload(ctx context.Context, p Payload) error {
	schema, err := payloadSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees the wire shape.
	data, err := json.Marshal(p)
	if err != nil {
		return &SubmitError{Message: "payload is not serializable", Err: err}
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &SubmitError{Message: "payload is not serializable", Err: err}
	}

	err = schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	fields := FieldErrors{}
	collectSchemaErrors(err, fields)
	if len(fields) == 0 {
		return &SubmitError{Message: "payload does not match the template contract", Err: err}
	}
	return &SubmitError{Fields: fields, Err: err}
}

func collectSchemaErrors(err error, fields FieldErrors) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collectSchemaErrors(inner, fields)
		}
	case *openapi3.SchemaError:
		field := "payload"
		if pointer := e.JSONPointer(); len(pointer) > 0 {
			field = strings.Join(pointer, ".")
		}
		reason := e.Reason
		if reason == "" {
			reason = e.Error()
		}
		fields[field] = append(fields[field], reason)
	default:
		if err != nil {
			fields["payload"] = append(fields["payload"], err.Error())
		}
	}
}
