package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(NotFound, "task %s", "abc")
	wrapped := fmt.Errorf("toggle completion: %w", base)

	if !Is(wrapped, NotFound) {
		t.Error("kind lost through fmt.Errorf wrapping")
	}
	if Is(wrapped, Validation) {
		t.Error("wrong kind matched")
	}
	if Is(errors.New("plain"), NotFound) {
		t.Error("plain error matched a kind")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(State, errors.New("boom"), "restore task")
	want := "state: restore task: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, err.Err) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}
