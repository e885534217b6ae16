package command

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-access/core"
)

func TestRequestAccessMessage_ValidateReturnsRichError(t *testing.T) {
	err := (RequestAccessMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.AccessErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.AccessErrorBadInput, rich.TextCode)
	}
}

func TestApproveGrantMessage_ValidateRequiresApprover(t *testing.T) {
	err := (ApproveGrantMessage{RequestID: "Ab3xYz"}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.AccessErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.AccessErrorBadInput, rich.TextCode)
	}
}

func TestApproveGrantCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *ApproveGrantCommand
	err := cmd.Execute(context.Background(), ApproveGrantMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
