package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-formsession/internal/httpapi"
	"github.com/goliatone/go-formsession/pkg/remote"
)

func TestClient_FetchDecodesRecord(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodGet || r.URL.Path != "/admin/dynamic_form/42/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "42", "template_name": "Inspection", "version": 2,
			"form_json": map[string]any{"form": "x"},
		})
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL, httpapi.WithToken("secret"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	rec, err := client.Fetch(context.Background(), "42")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rec.TemplateName != "Inspection" || rec.Version != 2 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if gotAuth != "Token secret" {
		t.Fatalf("missing token header, got %q", gotAuth)
	}
}

func TestClient_CreatePostsPayload(t *testing.T) {
	var received remote.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/admin/dynamic_form/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "7", "version": 1})
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	rec, err := client.Create(context.Background(), remote.Payload{
		TemplateName: "New Form",
		Status:       "draft",
		FormJSON:     map[string]any{"form": "y"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID != "7" || rec.Version != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if received.TemplateName != "New Form" || received.Status != "draft" {
		t.Fatalf("payload not forwarded: %+v", received)
	}
}

func TestClient_UpdateUsesPut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/admin/dynamic_form/42/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "version": 3})
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	rec, err := client.Update(context.Background(), "42", remote.Payload{TemplateName: "x", Status: "draft"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Version != 3 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestClient_ValidationErrorCarriesFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"template_name": []string{"required"},
			"form_json":     []string{"invalid structure"},
		})
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = client.Create(context.Background(), remote.Payload{})
	var submitErr *remote.SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected *remote.SubmitError, got %v", err)
	}
	if got := submitErr.Fields["template_name"]; len(got) != 1 || got[0] != "required" {
		t.Fatalf("unexpected field errors %v", submitErr.Fields)
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "forbidden", "message": "insufficient role"},
		})
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = client.Fetch(context.Background(), "42")
	var apiErr *httpapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *httpapi.Error, got %v", err)
	}
	if apiErr.Message != "insufficient role" || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestClient_FetchErrorIsNotSubmitTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "not_found", "message": "no such template"},
		})
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = client.Fetch(context.Background(), "42")
	if err == nil {
		t.Fatal("expected error")
	}
	var submitErr *remote.SubmitError
	if errors.As(err, &submitErr) {
		t.Fatalf("fetch failure carries submit semantics: %v", err)
	}
	var apiErr *httpapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *httpapi.Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", apiErr.StatusCode)
	}
}

func TestClient_NonJSONErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>gateway</html>"))
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = client.Fetch(context.Background(), "42")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_CustomerNameFallsBackToName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/customers/7/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "Acme Foundry"})
	}))
	defer srv.Close()

	client, err := httpapi.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	name, err := client.CustomerName(context.Background(), 7)
	if err != nil {
		t.Fatalf("customer name: %v", err)
	}
	if name != "Acme Foundry" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := httpapi.NewClient("   "); err == nil {
		t.Fatal("expected error for blank base url")
	}
}
