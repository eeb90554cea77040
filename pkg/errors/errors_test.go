package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
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
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeOutOfStock, status: http.StatusConflict, publicMsg: "item is out of stock", detailsOK: true},
		{code: CodeQuantityExceedsStock, status: http.StatusConflict, publicMsg: "requested quantity exceeds stock", detailsOK: true},
		{code: CodeCombinationUnavailable, status: http.StatusUnprocessableEntity, publicMsg: "combination unavailable", detailsOK: true},
		{code: CodePaymentStockAnomaly, status: http.StatusBadGateway, publicMsg: "payment succeeded but stock update failed", detailsOK: true},
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

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeOutOfStock, cause, "reserve")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	outer := fmt.Errorf("checkout: %w", wrapped)
	if !IsCode(outer, CodeOutOfStock) {
		t.Fatalf("expected IsCode to find code through fmt wrapping")
	}
	if IsCode(outer, CodeConflict) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(nil, CodeOutOfStock) {
		t.Fatalf("nil error should not match")
	}
}

func TestDiagnoseIncludesPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_items_name", TableName: "items", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "insert item")

	d := Diagnose(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Postgres == nil || d.Postgres.SQLState != "23505" || d.Postgres.Constraint != "ux_items_name" {
		t.Fatalf("unexpected postgres detail: %+v", d.Postgres)
	}
	if len(d.Chain) != 2 || d.Chain[1] != "*pgconn.PgError" {
		t.Fatalf("unexpected chain %v", d.Chain)
	}

	fields := d.LogFields()
	if fields["pg_table"] != "items" || fields["error_code"] != string(CodeConflict) {
		t.Fatalf("unexpected log fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty postgres fields should be left out")
	}
}

func TestDiagnosePlainError(t *testing.T) {
	d := Diagnose(fmt.Errorf("redis: %w", stdErrors.New("timeout")))
	if d.Postgres != nil || d.Code != "" {
		t.Fatalf("plain errors carry no code or postgres detail: %+v", d)
	}
	if _, ok := d.LogFields()["error_code"]; ok {
		t.Fatalf("error_code should be omitted without a typed error")
	}
	if Diagnose(nil).Message != "" {
		t.Fatalf("nil error should diagnose to the zero value")
	}
}

func TestMetadataMessageVisibility(t *testing.T) {
	for code, want := range map[Code]bool{
		CodeValidation:          true,
		CodeNotFound:            true,
		CodeRateLimit:           true,
		CodeInternal:            false,
		CodeDependency:          false,
		CodePaymentStockAnomaly: false,
	} {
		if got := MetadataFor(code).ShowMessage; got != want {
			t.Fatalf("code %s: ShowMessage = %v, want %v", code, got, want)
		}
	}
}
