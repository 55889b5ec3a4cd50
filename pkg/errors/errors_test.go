package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

type displayErr struct{ remaining string }

func (d displayErr) Error() string { return "coverage exceeded" }

func (d displayErr) AppError() *AppError {
	return NewValidation("amount exceeds remaining coverage").WithDetails(map[string]any{"remaining_coverage": d.remaining})
}

func TestErrorIncludesInternal(t *testing.T) {
	err := ErrNetwork.WithInternal(stdErrors.New("boom"))

	if err.Error() != ErrNetwork.Message+": boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestWithDetailsMergesWithoutMutating(t *testing.T) {
	base := NewValidation("amount required")
	first := base.WithDetails(map[string]any{"field": "amount"})
	second := first.WithDetails(map[string]any{"remaining_coverage": "60000"})

	if base.Details != nil {
		t.Fatal("expected base details to stay empty")
	}
	if len(first.Details) != 1 {
		t.Fatalf("expected one detail on first copy, got %d", len(first.Details))
	}
	if second.Details["field"] != "amount" || second.Details["remaining_coverage"] != "60000" {
		t.Fatalf("unexpected merged details: %#v", second.Details)
	}
}

func TestIsComparesCodes(t *testing.T) {
	err := fmt.Errorf("submit claim: %w", NewValidation("remarks required"))

	if !stdErrors.Is(err, ErrValidation) {
		t.Fatal("expected wrapped validation error to match ErrValidation")
	}
	if stdErrors.Is(err, ErrAuthorization) {
		t.Fatal("did not expect validation error to match ErrAuthorization")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestFromErrorPrefersRenderable(t *testing.T) {
	out := FromError(fmt.Errorf("wrapped: %w", displayErr{remaining: "60000"}))
	if out.Code != ErrValidation.Code {
		t.Fatalf("expected validation code, got %s", out.Code)
	}
	if out.Details["remaining_coverage"] != "60000" {
		t.Fatalf("expected remaining coverage detail, got %#v", out.Details)
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid id")
	if err.Code != ErrBadRequest.Code || err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected error: %+v", err)
	}
	if err.Message != "invalid id" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
}
