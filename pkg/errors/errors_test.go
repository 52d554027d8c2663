package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"wrapped invalid input", fmt.Errorf("parsing: %w", ErrInvalidInput), http.StatusBadRequest},
		{"malformed topic", fmt.Errorf("line 3: %w", ErrMalformedTopic), http.StatusBadRequest},
		{"unknown mode", ErrUnknownMode, http.StatusBadRequest},
		{"snapshot missing", ErrSnapshotNotFound, http.StatusNotFound},
		{"empty index", ErrEmptyIndex, http.StatusServiceUnavailable},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrUnknownMode, http.StatusBadRequest, "letter %q", "x")
	if !Is(err, ErrUnknownMode) {
		t.Fatal("expected AppError to unwrap to its sentinel")
	}
	if got, want := err.Error(), `unknown weighting mode: letter "x"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
