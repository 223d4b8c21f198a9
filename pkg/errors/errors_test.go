package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeUsageLimit, status: http.StatusConflict, publicMsg: "usage limit reached", retryable: true, detailsOK: true},
		{code: CodeConfiguration, status: http.StatusUnprocessableEntity, publicMsg: "pricing configuration incomplete", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestNewfAndNilWrap(t *testing.T) {
	err := Newf(CodeNotFound, "promotion %s not found", "SUMMER10")
	if err.Message() != "promotion SUMMER10 not found" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Error() != "NOT_FOUND: promotion SUMMER10 not found" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
	if Wrap(CodeInternal, nil, "x").Unwrap() != nil {
		t.Fatal("nil cause should unwrap to nil")
	}
	var typed *Error
	if typed.Code() != CodeInternal || typed.WithDetails("x") != nil {
		t.Fatal("nil receiver helpers should be safe")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeAndRetryable(t *testing.T) {
	err := fmt.Errorf("redeem: %w", New(CodeUsageLimit, "promotion usage limit reached"))
	if !IsCode(err, CodeUsageLimit) {
		t.Fatalf("expected usage limit code through wrapping")
	}
	if !Retryable(err) {
		t.Fatalf("usage limit should be retryable")
	}
	if Retryable(New(CodeConfiguration, "no base price")) {
		t.Fatalf("configuration errors are not retryable")
	}
	if Retryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors are not retryable")
	}
}

func TestDumpCapturesPQDetails(t *testing.T) {
	cause := &pq.Error{Code: "23505", Constraint: "promotions_code_key", Table: "promotions", Message: "duplicate key"}
	dump := Dump(Wrap(CodeConflict, cause, "create promotion"))
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "promotions_code_key" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
}

func TestDumpLogFieldsOmitsEmptyValues(t *testing.T) {
	fields := Dump(New(CodeNotFound, "rule not found")).LogFields()
	if fields["error_code"] != string(CodeNotFound) {
		t.Fatalf("expected error_code, got %v", fields)
	}
	for _, key := range []string{"pg_code", "pg_constraint", "error_chain"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("did not expect %s in %v", key, fields)
		}
	}

	cause := &pq.Error{Code: "40001", Table: "promotions"}
	fields = Dump(fmt.Errorf("record usage: %w", cause)).LogFields()
	if fields["pg_code"] != "40001" || fields["pg_table"] != "promotions" {
		t.Fatalf("expected pg fields, got %v", fields)
	}
	if _, ok := fields["error_code"]; ok {
		t.Fatalf("untyped errors carry no code: %v", fields)
	}
}
