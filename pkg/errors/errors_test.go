package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("mongo down")

	tests := []struct {
		name           string
		err            *AppError
		expectedCode   string
		expectedStatus int
	}{
		{name: "not found", err: NotFound("Allocation run"), expectedCode: CodeNotFound, expectedStatus: http.StatusNotFound},
		{name: "not found with id", err: NotFoundWithID("Allocation run", "r-1"), expectedCode: CodeNotFound, expectedStatus: http.StatusNotFound},
		{name: "validation", err: Validation("bad batch", nil), expectedCode: CodeValidation, expectedStatus: http.StatusUnprocessableEntity},
		{name: "invalid input", err: InvalidInput("bad json"), expectedCode: CodeInvalidInput, expectedStatus: http.StatusBadRequest},
		{name: "conflict", err: Conflict("duplicate"), expectedCode: CodeConflict, expectedStatus: http.StatusConflict},
		{name: "too large", err: TooLarge(1024), expectedCode: CodeTooLarge, expectedStatus: http.StatusRequestEntityTooLarge},
		{name: "unprocessable run", err: UnprocessableRun("nothing to allocate", nil), expectedCode: CodeUnprocessableRun, expectedStatus: http.StatusUnprocessableEntity},
		{name: "internal", err: Internal("failed", cause), expectedCode: CodeInternal, expectedStatus: http.StatusInternalServerError},
		{name: "misconfigured", err: Misconfigured("bad lanes", cause), expectedCode: CodeMisconfigured, expectedStatus: http.StatusInternalServerError},
		{name: "timeout", err: Timeout("slow"), expectedCode: CodeTimeout, expectedStatus: http.StatusGatewayTimeout},
		{name: "unavailable", err: Unavailable("MongoDB"), expectedCode: CodeUnavailable, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, tt.err.StatusCode())
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	plain := New(CodeNotFound, "run not found", http.StatusNotFound)
	if got := plain.Error(); got != "NOT_FOUND: run not found" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Internal("failed to save run", errors.New("write conflict"))
	if got := wrapped.Error(); got != "INTERNAL_ERROR: failed to save run (caused by: write conflict)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAppError_UnwrapAndAs(t *testing.T) {
	cause := errors.New("original")
	appErr := Internal("wrapped", cause)

	if !errors.Is(appErr, cause) {
		t.Error("expected errors.Is to reach the cause")
	}

	outer := fmt.Errorf("service: %w", NotFoundWithID("Allocation run", "abc"))
	if !IsAppError(outer) {
		t.Error("expected IsAppError to see through wrapping")
	}
	if got := AsAppError(outer); got.Details["id"] != "abc" {
		t.Errorf("expected wrapped AppError, got %v", got)
	}

	regular := errors.New("regular")
	if IsAppError(regular) {
		t.Error("regular error is not an AppError")
	}
	converted := AsAppError(regular)
	if converted.Code != CodeInternal || converted.Err != regular {
		t.Errorf("expected internal wrapper, got %+v", converted)
	}
}

func TestAppError_ZeroStatusDefaultsTo500(t *testing.T) {
	if got := (&AppError{Code: CodeInternal}).StatusCode(); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
}

func TestAppError_ToJSON(t *testing.T) {
	data := NotFoundWithID("Allocation run", "12345").ToJSON()

	var resp ErrorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("ToJSON produced invalid JSON: %v", err)
	}
	if resp.Code != CodeNotFound || resp.Details["id"] != "12345" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestWriteError(t *testing.T) {
	t.Run("app error keeps status and details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := WriteError(rec, Validation("invalid batch", map[string]any{"reservations[0].group": "required"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "reservations[0].group") {
			t.Errorf("expected details in body, got %s", rec.Body.String())
		}
	})

	t.Run("plain error is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_ = WriteError(rec, errors.New("secret connection string"))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Errorf("internal error text leaked: %s", rec.Body.String())
		}
	})
}
