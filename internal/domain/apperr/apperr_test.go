package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("Không tìm thấy mặt hàng LTTP")
	wrapped := fmt.Errorf("load item: %w", base)

	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected not_found, got %q", KindOf(wrapped))
	}
	if !Is(wrapped, KindNotFound) {
		t.Errorf("expected Is to match wrapped error")
	}
	if KindOf(errors.New("boom")) != "" {
		t.Errorf("expected unclassified error to have empty kind")
	}
}

func TestConflictUnwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Conflict("Đã tồn tại", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected conflict to unwrap to its cause")
	}
	if err.Error() != "Đã tồn tại: duplicate key" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
