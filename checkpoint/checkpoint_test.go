package checkpoint

import (
	"errors"
	"io"
	"strings"
	"testing"
)

var (
	errCause    = errors.New("cause")
	errSentinel = errors.New("sentinel")
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantNil bool
		wantIs  error
	}{
		{
			name:    "nil stays nil",
			err:     nil,
			wantNil: true,
		},
		{
			name:   "io.EOF is returned directly",
			err:    io.EOF,
			wantIs: io.EOF,
		},
		{
			name:   "any other error gets wrapped",
			err:    errCause,
			wantIs: errCause,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			if (got == nil) != tt.wantNil {
				t.Fatalf("From() = %v, wantNil %v", got, tt.wantNil)
			}
			if tt.wantIs != nil && !errors.Is(got, tt.wantIs) {
				t.Errorf("From() = %v, want errors.Is %v", got, tt.wantIs)
			}
		})
	}

	if From(io.EOF) != io.EOF {
		t.Errorf("From(io.EOF) must be io.EOF itself")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, errSentinel) != nil {
		t.Errorf("Wrap(nil, ...) must be nil")
	}
	if Wrap(io.EOF, errSentinel) != io.EOF {
		t.Errorf("Wrap(io.EOF, ...) must be io.EOF itself")
	}

	err := Wrap(errCause, errSentinel)
	if !errors.Is(err, errCause) {
		t.Errorf("Wrap() = %v, want errors.Is cause", err)
	}
	if !errors.Is(err, errSentinel) {
		t.Errorf("Wrap() = %v, want errors.Is sentinel", err)
	}
	if !strings.Contains(err.Error(), "checkpoint_test.go:") {
		t.Errorf("Wrap() = %q, want the caller location", err.Error())
	}

	nested := Wrap(err, errors.New("outer"))
	if !errors.Is(nested, errSentinel) || !errors.Is(nested, errCause) {
		t.Errorf("nested checkpoints must keep every error reachable: %v", nested)
	}
}

func TestFields(t *testing.T) {
	if Fields(errCause) != nil {
		t.Errorf("Fields() of a plain error must be nil")
	}

	inner := Wrap(errCause, errSentinel)
	outer := Wrap(inner, errors.New("outer"))

	fields := Fields(outer)
	if fields == nil {
		t.Fatalf("Fields() = nil, want location")
	}
	if fields["file"] != "checkpoint_test.go" {
		t.Errorf("Fields()[file] = %v, want checkpoint_test.go", fields["file"])
	}
	if fields["line"] != Fields(inner)["line"] {
		t.Errorf("Fields() must report the innermost checkpoint, got %v", fields)
	}
}
