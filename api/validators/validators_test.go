package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
)

type sampleBody struct {
	Username string `json:"username" validate:"required,min=3"`
	Mode     string `json:"mode" validate:"omitempty,oneof=increment replace"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"lan","extra":true}`))
	var body sampleBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsInvalidFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"la","mode":"double"}`))
	var body sampleBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	fields, ok := details["invalid_fields"].(map[string]string)
	if !ok {
		t.Fatalf("unexpected invalid_fields %T", details["invalid_fields"])
	}
	if fields["username"] != "must be at least 3" {
		t.Fatalf("unexpected username message %q", fields["username"])
	}
	if fields["mode"] != "must be one of: increment replace" {
		t.Fatalf("unexpected mode message %q", fields["mode"])
	}
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var body sampleBody
	if err := DecodeJSONBody(httptest.NewRecorder(), req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=150", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	got, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 20, 1, 100)
	if err != nil || got != 20 {
		t.Fatalf("expected default 20, got %d (%v)", got, err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("itemId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	if _, err := ParseUUIDParam(req, "itemId"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type accountBody struct {
	Username string `json:"username" validate:"required,username"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Quantity int    `json:"quantity"`
}

func TestDecodeJSONBodyCustomTags(t *testing.T) {
	cases := map[string]string{
		`{"username":"minh.nguyen","phone":"+84 (90) 123-4567"}`: "",
		`{"username":"minh nguyen"}`:                             "username",
		`{"username":"minh","phone":"call me"}`:                  "phone",
	}
	for payload, badField := range cases {
		var body accountBody
		err := DecodeJSONBody(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)), &body)
		if badField == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", payload, err)
			}
			continue
		}
		details, _ := pkgerrors.As(err).Details().(map[string]any)
		fields, _ := details["invalid_fields"].(map[string]string)
		if _, ok := fields[badField]; !ok {
			t.Fatalf("%s: expected %s to be invalid, got %v", payload, badField, err)
		}
	}
}

func TestDecodeJSONBodyNamesMistypedField(t *testing.T) {
	var body accountBody
	err := DecodeJSONBody(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"minh","quantity":"two"}`)), &body)
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	fields, _ := details["invalid_fields"].(map[string]string)
	if fields["quantity"] != "must be a int" {
		t.Fatalf("expected quantity type error, got %v", err)
	}
}
