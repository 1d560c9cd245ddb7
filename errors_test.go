package pollmux

import (
	"errors"
	"strings"
	"testing"
)

func TestDriverError_Unwrap(t *testing.T) {
	underlying := errors.New("device gone")
	err := error(&DriverError{Op: "poll", Err: underlying})

	if !errors.Is(err, underlying) {
		t.Error("DriverError must unwrap to the underlying error")
	}
	var derr *DriverError
	if !errors.As(err, &derr) || derr.Op != "poll" {
		t.Errorf("errors.As mismatch: %+v", derr)
	}
	if got := err.Error(); !strings.Contains(got, "poll") || !strings.Contains(got, "device gone") {
		t.Errorf("unexpected error text: %q", got)
	}
}

func TestInvariant_Panics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "invariant violation") {
			t.Errorf("unexpected panic value: %v", r)
		}
	}()
	invariant("fd %d already registered", 42)
}
