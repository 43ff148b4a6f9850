package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrInvalidConfiguration) {
		t.Error("ErrInvalidConfiguration should be fatal")
	}
	if !IsFatal(fmt.Errorf("parse: %w", ErrInvalidFilter)) {
		t.Error("wrapped ErrInvalidFilter should be fatal")
	}
	if IsFatal(ErrClosed) {
		t.Error("ErrClosed should not be fatal")
	}
	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrClosed, ErrInvalidConfiguration, ErrInvalidFilter, ErrInvalidTransition, ErrNotFound}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v should not match %v", a, b)
			}
		}
	}
}
